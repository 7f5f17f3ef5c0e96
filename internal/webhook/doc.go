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

// Package webhook receives deployment events from the delivery pipeline.
//
// The server is a thin adapter: it authenticates the request with an
// HMAC-SHA256 signature, rate-limits per team, decodes the event into an
// application descriptor, and hands it to the deploy engine's Upsert or
// Delete. When the event names the commit it was built from, the outcome
// is reported back to GitHub as a commit status; a failure to report never
// fails the deployment itself.
package webhook
