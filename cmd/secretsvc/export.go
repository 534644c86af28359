package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"go.abhg.dev/secretservice"
	"gopkg.in/yaml.v3"
)

type exportCmd struct {
	Service  string `arg:"" help:"Service the entry belongs to"`
	Username string `arg:"" help:"Username the entry is stored under"`
}

// exportedEntry is the YAML document printed by "secretsvc export".
type exportedEntry struct {
	Service    string            `yaml:"service"`
	Username   string            `yaml:"username"`
	Target     string            `yaml:"target,omitempty"`
	Label      string            `yaml:"label"`
	Attributes map[string]string `yaml:"attributes,omitempty"`

	// Secret is base64-encoded; secrets are arbitrary bytes.
	Secret string `yaml:"secret"`
}

func (cmd *exportCmd) Run(store *secretservice.Store, globals *globalOptions) error {
	cred, err := entry(store, globals, cmd.Service, cmd.Username)
	if err != nil {
		return err
	}

	secret, err := cred.GetSecret()
	if err != nil {
		return err
	}
	attrs, err := cred.Attributes()
	if err != nil {
		return err
	}
	label, err := cred.Label()
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	defer func() {
		_ = enc.Close()
	}()

	err = enc.Encode(exportedEntry{
		Service:    cred.Service(),
		Username:   cred.Username(),
		Target:     cred.Target(),
		Label:      label,
		Attributes: attrs,
		Secret:     base64.StdEncoding.EncodeToString(secret),
	})
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return nil
}
