package main

import (
	"fmt"
	"maps"
	"slices"

	"go.abhg.dev/secretservice"
)

type attrsCmd struct {
	Service  string `arg:"" help:"Service the entry belongs to"`
	Username string `arg:"" help:"Username the entry is stored under"`

	Set map[string]string `help:"Attributes to set instead of printing" placeholder:"KEY=VALUE"`
}

func (cmd *attrsCmd) Run(store *secretservice.Store, globals *globalOptions) error {
	cred, err := entry(store, globals, cmd.Service, cmd.Username)
	if err != nil {
		return err
	}

	if len(cmd.Set) > 0 {
		return cred.UpdateAttributes(cmd.Set)
	}

	attrs, err := cred.Attributes()
	if err != nil {
		return err
	}

	for _, key := range slices.Sorted(maps.Keys(attrs)) {
		fmt.Printf("%s=%s\n", key, attrs[key])
	}
	return nil
}
