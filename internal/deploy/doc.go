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

// Package deploy implements the one-shot application reconcile engine.
//
// # Upsert
//
// Upsert converges the cluster toward an application descriptor in a fixed
// order: namespace, then service, then deployment, then the shared ingress
// route. The ordering matters: the service must exist before the ingress
// references it, and nothing can exist before its namespace. Each
// resource is created from its full template when absent; when present,
// only the fields that legitimately change on redeploy are patched (for
// the deployment that is the container image plus overlay-driven fields),
// so cluster-assigned fields survive. A failed step aborts the pipeline
// with the step and application identity wrapped into the error; resources
// created by earlier steps are left in place.
//
// # Delete
//
// Delete removes the application's ingress route, service, and deployment
// concurrently. The three removals are independent and each one is
// idempotent: not-found is success. Failures are folded into a single
// aggregate error naming the sub-deletions that failed, so cleanup of one
// resource never blocks cleanup of the others.
//
// # The shared ingress
//
// Many applications' routes live in one ingress resource, so every ingress
// mutation is a read-modify-write cycle over a fresh copy. When the write
// loses an optimistic-concurrency race the whole cycle is rerun, bounded
// by the retry policy. A route owned by a different application's service
// is a conflict and aborts the operation without mutating shared state.
package deploy
