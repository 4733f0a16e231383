// Package fx collects the dependency graph. Constructors returning concrete
// types are adapted to the interfaces their consumers declare.
package fx

import (
	"go.uber.org/fx"

	"clan-tracker/internal/activity"
	"clan-tracker/internal/commands"
	"clan-tracker/internal/config"
	"clan-tracker/internal/database"
	"clan-tracker/internal/directory"
	"clan-tracker/internal/logger"
	"clan-tracker/internal/repository"
	"clan-tracker/internal/server"
	"clan-tracker/internal/service"
	"clan-tracker/internal/sheets"
	"clan-tracker/internal/spreadsheet"
	"clan-tracker/internal/temple"
)

func provideSheetsAPI(c *sheets.Client) sheets.API {
	return c
}

func provideDirectory(c *directory.DiscordClient) directory.Directory {
	return c
}

func provideCompetitionFetcher(c *temple.Client) service.CompetitionFetcher {
	return c
}

func provideActivityTracker(t *activity.Tracker) server.ActivityTracker {
	return t
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewMemberRepository),
	fx.Provide(repository.NewLedgerRepository),
	// external clients
	fx.Provide(sheets.NewClient, provideSheetsAPI),
	fx.Provide(directory.NewDiscordClient, provideDirectory),
	fx.Provide(temple.NewClient, provideCompetitionFetcher),
	fx.Provide(spreadsheet.NewReader),
	// svc
	fx.Provide(service.NewPointsService),
	fx.Provide(service.NewSpreadsheetService),
	fx.Provide(service.NewTempleService),
	fx.Provide(service.NewActivityService),
	fx.Provide(activity.NewTracker, provideActivityTracker),
	fx.Provide(commands.NewRegistry),
	// server
	fx.Provide(server.New),
)
