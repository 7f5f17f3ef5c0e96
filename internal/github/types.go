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

import "context"

// StatusContext is the name under which deployment statuses appear on a
// commit.
const StatusContext = "deploy/deployd"

// Notifier posts deployment outcomes to GitHub.
type Notifier interface {
	// UpdateCommitStatus sets the status of a commit.
	UpdateCommitStatus(ctx context.Context, commit Commit, status *Status) error
}

// Commit identifies the commit a deployment was built from.
type Commit struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	SHA   string `json:"sha"`
}

// Status represents a commit status to be set on GitHub.
type Status struct {
	State       StatusState // pending, success, error, failure
	TargetURL   string      // URL of the deployed application
	Description string      // Short description of the status
	Context     string      // A unique name for this status check
}

// StatusState represents the state of a commit status.
type StatusState string

const (
	// StatusStatePending indicates that the deployment is in progress.
	StatusStatePending StatusState = "pending"
	// StatusStateSuccess indicates that the deployment landed.
	StatusStateSuccess StatusState = "success"
	// StatusStateError indicates that the deployment errored.
	StatusStateError StatusState = "error"
	// StatusStateFailure indicates that the deployment failed.
	StatusStateFailure StatusState = "failure"
)

// DeployedStatus builds the status for a successful deployment, pointing
// at the application's URL when it has one.
func DeployedStatus(targetURL string) *Status {
	return &Status{
		State:       StatusStateSuccess,
		TargetURL:   targetURL,
		Description: "deployed",
		Context:     StatusContext,
	}
}

// FailedStatus builds the status for a failed deployment.
func FailedStatus(reason string) *Status {
	return &Status{
		State:       StatusStateFailure,
		Description: reason,
		Context:     StatusContext,
	}
}
