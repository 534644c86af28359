package main

import (
	"log/slog"

	"go.abhg.dev/secretservice"
)

type deleteCmd struct {
	Service  string `arg:"" help:"Service the entry belongs to"`
	Username string `arg:"" help:"Username the entry is stored under"`
}

func (cmd *deleteCmd) Run(store *secretservice.Store, globals *globalOptions, log *slog.Logger) error {
	cred, err := entry(store, globals, cmd.Service, cmd.Username)
	if err != nil {
		return err
	}

	if err := cred.Delete(); err != nil {
		return err
	}

	log.Info("Deleted entry", "service", cmd.Service, "username", cmd.Username)
	return nil
}
