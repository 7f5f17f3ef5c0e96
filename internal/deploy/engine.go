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
	"errors"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/deployd/internal/apps"
	"github.com/mikelane/deployd/internal/ingress"
	"github.com/mikelane/deployd/internal/retry"
	"github.com/mikelane/deployd/internal/templates"
)

// Config holds the deployment-wide constants injected into the engine.
type Config struct {
	// Environment names the deployment target this engine serves.
	// Descriptors for other environments are rejected.
	Environment string

	// IngressName is the name of the shared ingress resource in each
	// application namespace.
	IngressName string

	// IngressClass selects the controller serving the shared ingress.
	IngressClass string

	// IngressHost is the default host for rules whose descriptor gives
	// none, used only when composing application URLs.
	IngressHost string

	// WebhookBaseURL is the base URL recorded in pod environment
	// annotations for external observers.
	WebhookBaseURL string
}

// Engine reconciles application descriptors against the cluster. It keeps
// no state across calls: every invocation re-fetches the resources it
// touches.
type Engine struct {
	client client.Client
	cfg    Config
	policy retry.Policy
}

// NewEngine creates an engine using the given cluster client, deployment
// configuration, and retry policy for remote mutations.
func NewEngine(c client.Client, cfg Config, policy retry.Policy) *Engine {
	return &Engine{
		client: c,
		cfg:    cfg,
		policy: policy,
	}
}

func (e *Engine) templateConfig() templates.Config {
	return templates.Config{
		Environment:    e.cfg.Environment,
		WebhookBaseURL: e.cfg.WebhookBaseURL,
	}
}

// URL returns the externally visible URL for an application, or "" when it
// has no ingress rule.
func (e *Engine) URL(app *apps.Application) string {
	return app.URL(e.cfg.IngressHost)
}

// Upsert creates or updates the application's namespace, service,
// deployment, and ingress route, in that order. Validation and template
// construction happen up front, so a bad descriptor is rejected before any
// cluster mutation.
func (e *Engine) Upsert(ctx context.Context, app *apps.Application) error {
	if err := app.Validate(e.cfg.Environment); err != nil {
		upsertsTotal.WithLabelValues(outcomeInvalid).Inc()
		return err
	}

	ns := templates.Namespace(app)
	svc, err := templates.Service(app)
	if err != nil {
		upsertsTotal.WithLabelValues(outcomeInvalid).Inc()
		return err
	}
	dep, err := templates.Deployment(app, e.templateConfig())
	if err != nil {
		upsertsTotal.WithLabelValues(outcomeInvalid).Inc()
		return err
	}

	if err := e.run(ctx, app, ns, svc, dep); err != nil {
		upsertsTotal.WithLabelValues(outcomeError).Inc()
		return fmt.Errorf("failed to deploy %s/%s: %w", app.Namespace, templates.Name(app), err)
	}

	upsertsTotal.WithLabelValues(outcomeSuccess).Inc()
	return nil
}

// run executes the ordered upsert pipeline over pre-built templates.
func (e *Engine) run(ctx context.Context, app *apps.Application, ns *corev1.Namespace, svc *corev1.Service, dep *appsv1.Deployment) error {
	log := logf.FromContext(ctx)

	if err := e.upsertNamespace(ctx, ns); err != nil {
		return err
	}
	if svc != nil {
		if err := e.upsertService(ctx, svc); err != nil {
			return err
		}
	}
	if err := e.upsertDeployment(ctx, app, dep); err != nil {
		return err
	}
	if app.Path != "" {
		if err := e.upsertRoute(ctx, app); err != nil {
			return err
		}
	}

	log.Info("deployed application",
		"namespace", app.Namespace,
		"name", templates.Name(app),
		"image", app.Image)
	return nil
}

func (e *Engine) upsertNamespace(ctx context.Context, ns *corev1.Namespace) error {
	log := logf.FromContext(ctx)

	existing := &corev1.Namespace{}
	err := e.client.Get(ctx, types.NamespacedName{Name: ns.Name}, existing)
	if err == nil {
		// Namespaces carry identity only, nothing to patch.
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to get namespace %s: %w", ns.Name, err)
	}

	return retry.Do(ctx, log, e.policy, fmt.Sprintf("create namespace %s", ns.Name), func() error {
		return e.client.Create(ctx, ns)
	})
}

func (e *Engine) upsertService(ctx context.Context, svc *corev1.Service) error {
	log := logf.FromContext(ctx)

	existing := &corev1.Service{}
	err := e.client.Get(ctx, client.ObjectKeyFromObject(svc), existing)
	if apierrors.IsNotFound(err) {
		return retry.Do(ctx, log, e.policy, fmt.Sprintf("create service %s/%s", svc.Namespace, svc.Name), func() error {
			return e.client.Create(ctx, svc)
		})
	}
	if err != nil {
		return fmt.Errorf("failed to get service %s/%s: %w", svc.Namespace, svc.Name, err)
	}

	// Patch only what a redeploy may change. Cluster-assigned fields such
	// as clusterIP and node ports stay untouched.
	patch := client.MergeFrom(existing.DeepCopy())
	existing.Spec.Ports = svc.Spec.Ports
	existing.Spec.Selector = svc.Spec.Selector

	return retry.Do(ctx, log, e.policy, fmt.Sprintf("patch service %s/%s", svc.Namespace, svc.Name), func() error {
		return e.client.Patch(ctx, existing, patch)
	})
}

func (e *Engine) upsertDeployment(ctx context.Context, app *apps.Application, dep *appsv1.Deployment) error {
	log := logf.FromContext(ctx)

	existing := &appsv1.Deployment{}
	err := e.client.Get(ctx, client.ObjectKeyFromObject(dep), existing)
	if apierrors.IsNotFound(err) {
		return retry.Do(ctx, log, e.policy, fmt.Sprintf("create deployment %s/%s", dep.Namespace, dep.Name), func() error {
			return e.client.Create(ctx, dep)
		})
	}
	if err != nil {
		return fmt.Errorf("failed to get deployment %s/%s: %w", dep.Namespace, dep.Name, err)
	}

	// On redeploy only the container image changes, plus whatever the
	// overlay asks for. Never write the full template over a live
	// deployment: that would clobber cluster-side state.
	patch := client.MergeFrom(existing.DeepCopy())
	if len(existing.Spec.Template.Spec.Containers) > 0 {
		existing.Spec.Template.Spec.Containers[0].Image = app.Image
	}
	if len(app.DeploymentOverlay) > 0 {
		if err := templates.Apply(existing, app.DeploymentOverlay, "deploymentSpec"); err != nil {
			return err
		}
	}

	return retry.Do(ctx, log, e.policy, fmt.Sprintf("patch deployment %s/%s", dep.Namespace, dep.Name), func() error {
		return e.client.Patch(ctx, existing, patch)
	})
}

// route is the application's claim on the shared ingress.
func (e *Engine) route(app *apps.Application) ingress.Route {
	var port int32
	if app.Port != nil {
		port = *app.Port
	}
	return ingress.Route{
		Host:        app.Host,
		Path:        app.Path,
		ServiceName: templates.Name(app),
		ServicePort: port,
	}
}

// upsertRoute registers the application's route on the shared ingress. The
// whole read-modify-write cycle reruns when the write loses an optimistic
// concurrency race; a route owned by another application is fatal and not
// retried.
func (e *Engine) upsertRoute(ctx context.Context, app *apps.Application) error {
	log := logf.FromContext(ctx)
	route := e.route(app)
	description := fmt.Sprintf("register ingress route %s in %s", app.Path, app.Namespace)

	return retry.DoFiltered(ctx, log, e.policy, description, retryableRouteError, func() error {
		existing := &networkingv1.Ingress{}
		key := types.NamespacedName{Namespace: app.Namespace, Name: e.cfg.IngressName}
		err := e.client.Get(ctx, key, existing)
		if apierrors.IsNotFound(err) {
			ing := ingress.New(e.cfg.IngressName, app.Namespace, e.cfg.IngressClass, route)
			return e.client.Create(ctx, ing)
		}
		if err != nil {
			return fmt.Errorf("failed to get ingress %s/%s: %w", app.Namespace, e.cfg.IngressName, err)
		}

		outcome, err := ingress.Insert(existing, route)
		if err != nil {
			return err
		}
		if outcome == ingress.Unchanged {
			return nil
		}
		return e.client.Update(ctx, existing)
	})
}

// retryableRouteError rules route-ownership conflicts out of retry: no
// number of reattempts makes a path owned by another application free.
func retryableRouteError(err error) bool {
	var conflict *ingress.ConflictError
	return !errors.As(err, &conflict)
}
