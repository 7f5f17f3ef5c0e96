// Copyright 2025 The Deployd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webhook

import (
	"github.com/mikelane/deployd/internal/apps"
	"github.com/mikelane/deployd/internal/github"
)

// Event actions accepted by the webhook endpoint.
const (
	ActionDeploy   = "deploy"
	ActionUndeploy = "undeploy"
)

// DeploymentEvent is the payload the delivery pipeline posts to /webhook.
type DeploymentEvent struct {
	// Action is either "deploy" or "undeploy".
	Action string `json:"action"`

	// Application is the descriptor of the application to act on.
	Application apps.Application `json:"application"`

	// Commit, when present, identifies the commit the image was built
	// from; the deployment outcome is reported to it as a commit status.
	Commit *github.Commit `json:"commit,omitempty"`
}

// response is the JSON body written for every webhook request.
type response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	URL     string `json:"url,omitempty"`
}
