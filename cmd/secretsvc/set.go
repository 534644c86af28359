package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.abhg.dev/secretservice"
)

type setCmd struct {
	Service  string `arg:"" help:"Service the entry belongs to"`
	Username string `arg:"" help:"Username to store the entry under"`

	Label string `help:"Label for the new entry in Secret Service UIs"`
}

func (cmd *setCmd) Run(store *secretservice.Store, globals *globalOptions, log *slog.Logger) error {
	secret, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read secret from stdin: %w", err)
	}

	cred, err := store.Entry(cmd.Service, cmd.Username, &secretservice.EntryOptions{
		Target: globals.Target,
		Label:  cmd.Label,
	})
	if err != nil {
		return err
	}

	if err := cred.SetSecret(secret); err != nil {
		return err
	}

	log.Info("Stored secret", "service", cmd.Service, "username", cmd.Username)
	return nil
}
