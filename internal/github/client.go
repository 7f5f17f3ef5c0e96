// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/deployd/internal/retry"
)

// notifier implements the Notifier interface using go-github.
type notifier struct {
	client *github.Client
	policy retry.Policy
}

// NewNotifier creates a notifier with the provided token. An empty token
// yields an unauthenticated client, which is enough for public
// repositories with generous rate limits.
func NewNotifier(token string, policy retry.Policy) (Notifier, error) {
	var httpClient *http.Client
	if token != "" {
		httpClient = github.NewClient(nil).Client()
		httpClient.Transport = &github.BasicAuthTransport{
			Username: "token",
			Password: token,
		}
	}

	return &notifier{
		client: github.NewClient(httpClient),
		policy: policy,
	}, nil
}

// UpdateCommitStatus posts a commit status, retrying transient GitHub API
// failures per the notifier's policy.
func (n *notifier) UpdateCommitStatus(ctx context.Context, commit Commit, status *Status) error {
	repoStatus := &github.RepoStatus{
		State:       github.String(string(status.State)),
		TargetURL:   github.String(status.TargetURL),
		Description: github.String(status.Description),
		Context:     github.String(status.Context),
	}

	log := logf.FromContext(ctx)
	description := fmt.Sprintf("update commit status %s/%s@%s", commit.Owner, commit.Repo, commit.SHA)

	err := retry.DoFiltered(ctx, log, n.policy, description, isRetryableError, func() error {
		_, _, err := n.client.Repositories.CreateStatus(ctx, commit.Owner, commit.Repo, commit.SHA, repoStatus)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update commit status: %w", err)
	}

	return nil
}

// isRetryableError reports whether a GitHub API error is worth
// reattempting.
func isRetryableError(err error) bool {
	ghErr, ok := err.(*github.ErrorResponse)
	if !ok {
		return false
	}

	switch ghErr.Response.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	case http.StatusForbidden:
		return ghErr.Message == "API rate limit exceeded"
	}

	return false
}
