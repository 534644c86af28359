package main

import (
	"log/slog"

	"go.abhg.dev/secretservice"
)

type collectionCmd struct {
	Delete collectionDeleteCmd `cmd:"" help:"Delete a collection and all its items"`
}

type collectionDeleteCmd struct {
	Name string `arg:"" help:"Label of the collection to delete"`
}

func (cmd *collectionDeleteCmd) Run(store *secretservice.Store, log *slog.Logger) error {
	if err := store.DeleteCollection(cmd.Name); err != nil {
		return err
	}

	log.Info("Deleted collection", "name", cmd.Name)
	return nil
}
