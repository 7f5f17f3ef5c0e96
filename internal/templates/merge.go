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

package templates

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	utiljson "k8s.io/apimachinery/pkg/util/json"

	"github.com/mikelane/deployd/internal/apps"
)

// Merge deep-merges overlay onto base and returns the result. Maps merge
// recursively and overlay scalars overwrite base scalars. Arrays are the
// exception: an overlay array replaces the base array wholesale. Neither
// input is modified.
func Merge(base, overlay map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base))
	for k, v := range base {
		merged[k] = v
	}

	for k, v := range overlay {
		bv, exists := merged[k]
		if !exists {
			merged[k] = v
			continue
		}

		bm, baseIsMap := bv.(map[string]interface{})
		om, overlayIsMap := v.(map[string]interface{})
		if baseIsMap && overlayIsMap {
			merged[k] = Merge(bm, om)
			continue
		}

		// Arrays, scalars, and type mismatches all resolve in favor of
		// the overlay value.
		merged[k] = v
	}

	return merged
}

// Apply merges a raw JSON overlay onto a typed resource in place. The
// overlay is decoded with the apimachinery JSON helpers so whole numbers
// stay integral and survive the round trip through the unstructured
// converter. field names the descriptor field the overlay came from, for
// validation errors.
func Apply(obj interface{}, overlay []byte, field string) error {
	base, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return fmt.Errorf("failed to convert %s template: %w", field, err)
	}

	var partial map[string]interface{}
	if err := utiljson.Unmarshal(overlay, &partial); err != nil {
		return &apps.ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("overlay is not valid JSON: %v", err),
		}
	}

	merged := Merge(base, partial)
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(merged, obj); err != nil {
		return &apps.ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("merged overlay does not form a valid spec: %v", err),
		}
	}

	return nil
}
