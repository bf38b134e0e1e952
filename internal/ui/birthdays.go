package ui

import (
	"context"

	"gitlab.com/dirk.krummacker/contacts-frontend/pkg/model"
	"go.uber.org/zap"
)

// BirthdaysAPI is the part of the contacts client that the birthday list needs.
type BirthdaysAPI interface {
	ListBirthdays(ctx context.Context) ([]model.Contact, error)
}

// LoadBirthdays replaces the contents of into with the contacts whose birthday is coming up. On
// failure the error is logged and into is left as it was.
func LoadBirthdays(ctx context.Context, api BirthdaysAPI, logger *zap.Logger, into *[]model.Contact) {
	contacts, err := api.ListBirthdays(ctx)
	if err != nil {
		logger.Error("could not load upcoming birthdays", zap.Error(err))
		return
	}
	*into = append((*into)[:0], contacts...)
}
