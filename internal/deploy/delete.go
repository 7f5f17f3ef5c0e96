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
	"context"
	"fmt"
	"strings"
	"sync"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/deployd/internal/apps"
	"github.com/mikelane/deployd/internal/ingress"
	"github.com/mikelane/deployd/internal/retry"
	"github.com/mikelane/deployd/internal/templates"
)

// DeleteError aggregates the failures of the concurrent sub-deletions. The
// other removals still ran to completion.
type DeleteError struct {
	Failures []string
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("failed to remove application resources: %s", strings.Join(e.Failures, "; "))
}

// removal is one independent, idempotent sub-deletion.
type removal struct {
	name string
	fn   func(context.Context, *apps.Application) error
}

// result folds a sub-deletion into the aggregate: a zero code is success.
type result struct {
	code    int
	message string
}

// Delete removes the application's ingress route, service, and deployment.
// The three removals run concurrently and each treats not-found as
// success; the namespace is shared infrastructure and is never deleted.
// A non-nil error is always a *DeleteError naming the failed removals.
func (e *Engine) Delete(ctx context.Context, app *apps.Application) error {
	if err := app.Validate(e.cfg.Environment); err != nil {
		deletesTotal.WithLabelValues(outcomeInvalid).Inc()
		return err
	}

	removals := []removal{
		{name: "ingress route", fn: e.removeRoute},
		{name: "service", fn: e.deleteService},
		{name: "deployment", fn: e.deleteDeployment},
	}

	results := make(chan result, len(removals))
	var wg sync.WaitGroup
	for _, r := range removals {
		wg.Add(1)
		go func(r removal) {
			defer wg.Done()
			if err := r.fn(ctx, app); err != nil {
				results <- result{code: 1, message: fmt.Sprintf("%s: %v", r.name, err)}
				return
			}
			results <- result{}
		}(r)
	}
	wg.Wait()
	close(results)

	code := 0
	var failures []string
	for r := range results {
		code += r.code
		if r.message != "" {
			failures = append(failures, r.message)
		}
	}
	if code != 0 {
		deletesTotal.WithLabelValues(outcomeError).Inc()
		return &DeleteError{Failures: failures}
	}

	deletesTotal.WithLabelValues(outcomeSuccess).Inc()
	logf.FromContext(ctx).Info("removed application",
		"namespace", app.Namespace,
		"name", templates.Name(app))
	return nil
}

func (e *Engine) deleteService(ctx context.Context, app *apps.Application) error {
	log := logf.FromContext(ctx)
	name := templates.Name(app)

	return retry.Do(ctx, log, e.policy, fmt.Sprintf("delete service %s/%s", app.Namespace, name), func() error {
		svc := &corev1.Service{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: app.Namespace},
		}
		if err := e.client.Delete(ctx, svc); err != nil && !apierrors.IsNotFound(err) {
			return err
		}
		return nil
	})
}

func (e *Engine) deleteDeployment(ctx context.Context, app *apps.Application) error {
	log := logf.FromContext(ctx)
	name := templates.Name(app)

	return retry.Do(ctx, log, e.policy, fmt.Sprintf("delete deployment %s/%s", app.Namespace, name), func() error {
		dep := &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: app.Namespace},
		}
		if err := e.client.Delete(ctx, dep); err != nil && !apierrors.IsNotFound(err) {
			return err
		}
		return nil
	})
}

// removeRoute takes the application's route out of the shared ingress,
// patching the resource when other applications' routes remain and
// deleting it when the last rule goes. Like the upsert path, the whole
// read-modify-write cycle reruns on an optimistic concurrency race.
func (e *Engine) removeRoute(ctx context.Context, app *apps.Application) error {
	if app.Path == "" {
		return nil
	}

	log := logf.FromContext(ctx)
	route := e.route(app)
	description := fmt.Sprintf("remove ingress route %s in %s", app.Path, app.Namespace)

	return retry.DoFiltered(ctx, log, e.policy, description, retryableRouteError, func() error {
		existing := &networkingv1.Ingress{}
		key := types.NamespacedName{Namespace: app.Namespace, Name: e.cfg.IngressName}
		err := e.client.Get(ctx, key, existing)
		if apierrors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get ingress %s/%s: %w", app.Namespace, e.cfg.IngressName, err)
		}

		outcome, err := ingress.Remove(existing, route)
		if err != nil {
			return err
		}
		switch outcome {
		case ingress.Unchanged:
			return nil
		case ingress.DeleteResource:
			if err := e.client.Delete(ctx, existing); err != nil && !apierrors.IsNotFound(err) {
				return err
			}
			return nil
		default:
			return e.client.Update(ctx, existing)
		}
	})
}
