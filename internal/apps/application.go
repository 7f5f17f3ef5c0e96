/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package apps defines the application descriptor consumed by the deploy
// engine and its validation rules.
package apps

import (
	"encoding/json"
	"fmt"
)

// Application is the declarative description of one application deployment.
// It is the sole input to resource template construction and is treated as
// immutable once accepted by the engine.
type Application struct {
	// Name is the base name for all derived resources.
	Name string `json:"name"`

	// Namespace is the Kubernetes namespace the application deploys into.
	Namespace string `json:"ns"`

	// Team identifies the owning team or workspace.
	Team string `json:"team"`

	// Environment names the deployment target, e.g. "production" or
	// "testing". A request whose environment does not match the engine's
	// configured environment is rejected before any cluster mutation.
	Environment string `json:"environment"`

	// Image is the full container image reference to deploy.
	Image string `json:"image"`

	// ImagePullSecret optionally names a secret used to pull the image.
	ImagePullSecret string `json:"imagePullSecret,omitempty"`

	// Port is the container and service port. When nil the application
	// gets no service and no HTTP probes.
	Port *int32 `json:"port,omitempty"`

	// Path is the ingress path. When empty the application gets no
	// ingress rule.
	Path string `json:"path,omitempty"`

	// Host is the ingress host for the application's rule. Empty selects
	// the wildcard (no-host) rule.
	Host string `json:"host,omitempty"`

	// Protocol is the scheme used when composing the application's
	// externally visible URL, "http" or "https".
	Protocol string `json:"protocol,omitempty"`

	// DeploymentOverlay is an optional partial deployment spec merged
	// over the default template. Arrays in the overlay replace the
	// corresponding default arrays wholesale.
	DeploymentOverlay json.RawMessage `json:"deploymentSpec,omitempty"`

	// ServiceOverlay is an optional partial service spec merged over the
	// default template with the same array semantics.
	ServiceOverlay json.RawMessage `json:"serviceSpec,omitempty"`
}

// ValidationError reports a descriptor that cannot be deployed. It is
// always surfaced before any cluster mutation is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid application descriptor: %s: %s", e.Field, e.Reason)
}

// Validate checks that the descriptor carries everything the engine needs
// and that it targets the given environment.
func (a *Application) Validate(environment string) error {
	if a.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if a.Namespace == "" {
		return &ValidationError{Field: "ns", Reason: "must not be empty"}
	}
	if a.Team == "" {
		return &ValidationError{Field: "team", Reason: "must not be empty"}
	}
	if a.Image == "" {
		return &ValidationError{Field: "image", Reason: "must not be empty"}
	}
	if a.Environment != environment {
		return &ValidationError{
			Field:  "environment",
			Reason: fmt.Sprintf("%q does not match deployment environment %q", a.Environment, environment),
		}
	}
	if a.Port != nil && (*a.Port < 1 || *a.Port > 65535) {
		return &ValidationError{Field: "port", Reason: fmt.Sprintf("%d is not a valid port", *a.Port)}
	}
	// An ingress rule routes to the application's service, which only
	// exists when a port is given.
	if a.Path != "" && a.Port == nil {
		return &ValidationError{Field: "path", Reason: "an ingress path requires a port"}
	}
	return nil
}

// URL composes the externally visible URL for the application, or "" when
// the application has no ingress rule.
func (a *Application) URL(defaultHost string) string {
	if a.Path == "" {
		return ""
	}
	scheme := a.Protocol
	if scheme == "" {
		scheme = "http"
	}
	host := a.Host
	if host == "" {
		host = defaultHost
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, a.Path)
}
