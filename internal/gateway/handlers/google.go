package handlers

import (
	"context"
	"fmt"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"

	"github.com/rbent/api-gateway/internal/googleauth"
)

// GoogleClients bundles the Google API services the gateway fronts. All of
// them draw tokens from the shared googleauth.Manager, and every handler
// call goes through Manager.Do for the retry-once-on-401 contract.
type GoogleClients struct {
	Auth     *googleauth.Manager
	Calendar *calendar.Service
	Tasks    *tasks.Service
	Gmail    *gmail.Service
	Drive    *drive.Service
}

// NewGoogleClients constructs the Google API services against the shared
// token source. Extra options (custom endpoints, HTTP clients) are appended
// for tests.
func NewGoogleClients(ctx context.Context, auth *googleauth.Manager, extra ...option.ClientOption) (*GoogleClients, error) {
	opts := append([]option.ClientOption{option.WithTokenSource(auth)}, extra...)

	calendarSvc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	tasksSvc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create tasks service: %w", err)
	}
	gmailSvc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &GoogleClients{
		Auth:     auth,
		Calendar: calendarSvc,
		Tasks:    tasksSvc,
		Gmail:    gmailSvc,
		Drive:    driveSvc,
	}, nil
}
