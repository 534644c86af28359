package main

import (
	"fmt"

	"go.abhg.dev/secretservice"
)

type labelCmd struct {
	Service  string `arg:"" help:"Service the entry belongs to"`
	Username string `arg:"" help:"Username the entry is stored under"`

	Set string `help:"Label to set instead of printing"`
}

func (cmd *labelCmd) Run(store *secretservice.Store, globals *globalOptions) error {
	cred, err := entry(store, globals, cmd.Service, cmd.Username)
	if err != nil {
		return err
	}

	if cmd.Set != "" {
		return cred.SetLabel(cmd.Set)
	}

	label, err := cred.Label()
	if err != nil {
		return err
	}

	fmt.Println(label)
	return nil
}
