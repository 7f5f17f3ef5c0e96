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

package deploy

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeInvalid = "invalid"
)

var (
	upsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployd_upserts_total",
			Help: "Application upserts by outcome.",
		},
		[]string{"outcome"},
	)

	deletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployd_deletes_total",
			Help: "Application deletions by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	metrics.Registry.MustRegister(upsertsTotal, deletesTotal)
}
