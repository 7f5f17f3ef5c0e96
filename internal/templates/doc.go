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

// Package templates builds the canonical namespace, service, and deployment
// specs for an application descriptor.
//
// # Overview
//
// Every builder is a pure function of the descriptor plus the injected
// deployment configuration: calling it twice with the same input yields the
// same resource. The deploy engine owns all cluster interaction; this
// package never touches the API server.
//
// # Defaults
//
// Deployments are built for zero-downtime rollout: one replica, a rolling
// update strategy with maxUnavailable=0 and maxSurge=1, three retained
// revisions, and fixed resource requests and limits. When the descriptor
// carries a port, the container gets an HTTP readiness and liveness probe
// wired to it; without a port there are no probes and no container ports.
//
// # Overlays
//
// A descriptor may carry partial deployment and service specs. They are
// deep-merged over the defaults with one rule: an array in the overlay
// replaces the corresponding default array wholesale, it is never
// concatenated or merged element-wise. All other fields merge recursively.
// An overlay that fails to parse is a validation error reported before any
// cluster mutation.
package templates
