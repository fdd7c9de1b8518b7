package github

import (
	"context"

	"blog-sync/internal/auth"
	"blog-sync/internal/model"
)

// App holds the immutable configuration of the GitHub App flow. Every call
// mints its own assertion and resolves its own installation.
type App struct {
	Credential   auth.AppCredential
	Repo         string
	WebsiteURL   string
	Minter       *auth.Minter
	Resolver     *InstallationResolver
	Synchronizer *Synchronizer
}

// Installation mints a fresh assertion and resolves the repository installation.
func (a *App) Installation(ctx context.Context) (InstallationToken, error) {
	assertion, err := a.Minter.Mint(a.Credential)
	if err != nil {
		return InstallationToken{}, err
	}
	return a.Resolver.Resolve(ctx, a.Repo, assertion)
}

// SyncDiscussion resolves the installation and then updates the discussion.
// The mutation is never attempted when resolution fails.
func (a *App) SyncDiscussion(ctx context.Context, discussionID, rawTitle string) (model.DiscussionRecord, error) {
	inst, err := a.Installation(ctx)
	if err != nil {
		return model.DiscussionRecord{}, err
	}
	return a.Synchronizer.Update(ctx, discussionID, rawTitle, Auth{
		AppID:          a.Credential.AppID,
		PrivateKey:     a.Credential.PrivateKey,
		InstallationID: inst.InstallationID,
		WebsiteURL:     a.WebsiteURL,
	})
}
