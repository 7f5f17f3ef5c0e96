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

// Package ingress implements the rule algebra for the shared Ingress
// resource that routes every deployed application.
//
// # Overview
//
// One Ingress per namespace holds the routes of many unrelated
// applications, so mutations have to be set operations, never wholesale
// writes: inserting an application's route must not clobber another
// application's, and removing one must refuse to touch a path it does not
// own.
//
// The algebra is pure with respect to the cluster: Insert and Remove
// operate on an in-memory Ingress the caller has just read, and the caller
// decides whether the outcome warrants a create, a patch, a delete, or
// nothing. Serializing concurrent mutations is likewise the caller's job,
// via the cluster's resource-version conflict detection.
//
// # Invariants
//
//   - At most one rule per distinct host, with the empty host standing for
//     the wildcard rule.
//   - Within a rule, paths are unique and keep insertion order.
//   - A (host, path) pair is owned by exactly one backend service; claiming
//     it for a different backend is a conflict.
//   - A rule with no paths is removed, and an Ingress with no rules is
//     deleted rather than left as an empty shell.
package ingress
