package main

import (
	"os"

	"go.abhg.dev/secretservice"
)

type getCmd struct {
	Service  string `arg:"" help:"Service the entry belongs to"`
	Username string `arg:"" help:"Username the entry is stored under"`
}

func (cmd *getCmd) Run(store *secretservice.Store, globals *globalOptions) error {
	cred, err := entry(store, globals, cmd.Service, cmd.Username)
	if err != nil {
		return err
	}

	secret, err := cred.GetSecret()
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(secret)
	return err
}
