package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/shurcooL/githubv4"

	"blog-sync/internal/auth"
	"blog-sync/internal/model"
)

// LocalePrefix marks the secondary (Chinese) locale. Titles without it belong
// to the primary locale.
const LocalePrefix = "zh/"

// CanonicalTitle returns raw when it already starts with LocalePrefix and the
// prefixed title otherwise. Only a literal match at position 0 counts.
func CanonicalTitle(raw string) string {
	if strings.HasPrefix(raw, LocalePrefix) {
		return raw
	}
	return LocalePrefix + raw
}

// CanonicalBody renders the bilingual link block that replaces the discussion
// body on every update.
func CanonicalBody(raw, websiteURL string) string {
	var primary, secondary string
	if strings.HasPrefix(raw, LocalePrefix) {
		primary = websiteURL + raw[2:]
		secondary = websiteURL + "/" + raw
	} else {
		primary = websiteURL + "/" + raw
		secondary = websiteURL + "/" + LocalePrefix + raw
	}
	return "\n**English**: " + primary + "\n**中文**: " + secondary + "\n"
}

// Slug strips the locale prefix from a canonical title.
func Slug(title string) string {
	return strings.TrimPrefix(title, LocalePrefix)
}

// Auth carries what the synchronizer needs to act as an installation.
type Auth struct {
	AppID          string
	PrivateKey     string
	InstallationID int64
	WebsiteURL     string
}

// SyncError wraps any failure of the update mutation.
type SyncError struct {
	DiscussionID string
	Title        string
	Err          error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("update discussion %s (%q): %v", e.DiscussionID, e.Title, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

type updateDiscussionMutation struct {
	UpdateDiscussion struct {
		Discussion struct {
			ID    string
			Title string
			Body  string
		}
	} `graphql:"updateDiscussion(input: $input)"`
}

type Synchronizer struct {
	apiURL     string
	graphqlURL string
	transport  http.RoundTripper
}

func NewSynchronizer(apiURL, graphqlURL string, transport http.RoundTripper) *Synchronizer {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if graphqlURL == "" {
		graphqlURL = DefaultGraphQLURL
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Synchronizer{apiURL: strings.TrimRight(apiURL, "/"), graphqlURL: graphqlURL, transport: transport}
}

// Update rewrites the discussion title and body. A new installation transport
// is built for each call, so no token outlives it. Exactly one mutation is sent.
func (s *Synchronizer) Update(ctx context.Context, discussionID, rawTitle string, a Auth) (model.DiscussionRecord, error) {
	appID, err := strconv.ParseInt(a.AppID, 10, 64)
	if err != nil {
		return model.DiscussionRecord{}, &auth.CredentialError{Reason: "app id must be numeric", Err: err}
	}
	if _, err := auth.ParsePrivateKey(a.PrivateKey); err != nil {
		return model.DiscussionRecord{}, err
	}

	itr, err := ghinstallation.New(s.transport, appID, a.InstallationID, auth.NormalizePrivateKey(a.PrivateKey))
	if err != nil {
		return model.DiscussionRecord{}, &auth.CredentialError{Reason: "installation transport", Err: err}
	}
	itr.BaseURL = s.apiURL
	client := githubv4.NewEnterpriseClient(s.graphqlURL, &http.Client{Transport: itr})

	title := CanonicalTitle(rawTitle)
	input := githubv4.UpdateDiscussionInput{
		DiscussionID: githubv4.ID(discussionID),
		Title:        githubv4.NewString(githubv4.String(title)),
		Body:         githubv4.NewString(githubv4.String(CanonicalBody(rawTitle, a.WebsiteURL))),
	}

	var m updateDiscussionMutation
	if err := client.Mutate(ctx, &m, input, nil); err != nil {
		return model.DiscussionRecord{}, &SyncError{DiscussionID: discussionID, Title: title, Err: err}
	}

	d := m.UpdateDiscussion.Discussion
	return model.DiscussionRecord{ID: d.ID, Title: d.Title, Body: d.Body}, nil
}
