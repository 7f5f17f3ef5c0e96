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
	"encoding/json"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/mikelane/deployd/internal/apps"
	"github.com/mikelane/deployd/internal/names"
)

const (
	// ManagedByLabel marks every resource deployd owns.
	ManagedByLabel = "apps.deployd.io/managed-by"

	managedBy = "deployd"

	// EnvironmentAnnotation carries a machine-readable description of the
	// deployment environment and its event webhooks, for external
	// observers of pods deployd creates.
	EnvironmentAnnotation = "apps.deployd.io/environment"

	portName = "http"
)

// Config holds the deployment-wide constants injected into the builders.
type Config struct {
	// Environment names the deployment target this process serves.
	Environment string

	// WebhookBaseURL is the base URL for per-team event webhooks recorded
	// in the environment annotation.
	WebhookBaseURL string
}

// Name returns the derived, DNS-safe resource name for an application. The
// service and deployment of one application share this name.
func Name(app *apps.Application) string {
	return names.Derive(app.Name, "0", app.Team)
}

// selectorLabels identify exactly one application's pods.
func selectorLabels(app *apps.Application) map[string]string {
	return map[string]string{
		"app":  Name(app),
		"team": app.Team,
	}
}

func resourceLabels(app *apps.Application) map[string]string {
	labels := selectorLabels(app)
	labels[ManagedByLabel] = managedBy
	return labels
}

// Namespace builds the namespace for an application. It carries identity
// only; there is no spec content beyond the name.
func Namespace(app *apps.Application) *corev1.Namespace {
	return &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name: app.Namespace,
			Labels: map[string]string{
				ManagedByLabel: managedBy,
			},
		},
	}
}

// Service builds the service for an application. It returns nil when the
// descriptor has no port: such applications get no service at all.
func Service(app *apps.Application) (*corev1.Service, error) {
	if app.Port == nil {
		return nil, nil
	}

	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      Name(app),
			Namespace: app.Namespace,
			Labels:    resourceLabels(app),
		},
		Spec: corev1.ServiceSpec{
			Type:            corev1.ServiceTypeNodePort,
			SessionAffinity: corev1.ServiceAffinityNone,
			Selector:        selectorLabels(app),
			Ports: []corev1.ServicePort{
				{
					Name:       portName,
					Protocol:   corev1.ProtocolTCP,
					Port:       *app.Port,
					TargetPort: intstr.FromInt32(*app.Port),
				},
			},
		},
	}

	if len(app.ServiceOverlay) > 0 {
		if err := Apply(svc, app.ServiceOverlay, "serviceSpec"); err != nil {
			return nil, err
		}
	}

	return svc, nil
}

// Deployment builds the deployment for an application: one replica, a
// zero-downtime rolling update strategy, fixed resource requests and
// limits, and HTTP probes when the descriptor carries a port.
func Deployment(app *apps.Application, cfg Config) (*appsv1.Deployment, error) {
	name := Name(app)
	replicas := int32(1)
	revisionHistory := int32(3)
	maxUnavailable := intstr.FromInt32(0)
	maxSurge := intstr.FromInt32(1)

	container := corev1.Container{
		Name:  name,
		Image: app.Image,
		Resources: corev1.ResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("100m"),
				corev1.ResourceMemory: resource.MustParse("320Mi"),
			},
			Limits: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("300m"),
				corev1.ResourceMemory: resource.MustParse("384Mi"),
			},
		},
		Env: []corev1.EnvVar{
			{Name: "DEPLOYD_TEAM", Value: app.Team},
			{Name: "DEPLOYD_ENVIRONMENT", Value: cfg.Environment},
		},
	}

	if app.Port != nil {
		container.Ports = []corev1.ContainerPort{
			{Name: portName, ContainerPort: *app.Port, Protocol: corev1.ProtocolTCP},
		}
		probe := func(initialDelay int32) *corev1.Probe {
			return &corev1.Probe{
				ProbeHandler: corev1.ProbeHandler{
					HTTPGet: &corev1.HTTPGetAction{
						Path: "/",
						Port: intstr.FromInt32(*app.Port),
					},
				},
				InitialDelaySeconds: initialDelay,
				PeriodSeconds:       10,
				TimeoutSeconds:      3,
				FailureThreshold:    3,
			}
		}
		container.ReadinessProbe = probe(10)
		container.LivenessProbe = probe(30)
	}

	annotation, err := environmentAnnotation(app, cfg)
	if err != nil {
		return nil, err
	}

	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: app.Namespace,
			Labels:    resourceLabels(app),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas:             &replicas,
			RevisionHistoryLimit: &revisionHistory,
			Selector: &metav1.LabelSelector{
				MatchLabels: selectorLabels(app),
			},
			Strategy: appsv1.DeploymentStrategy{
				Type: appsv1.RollingUpdateDeploymentStrategyType,
				RollingUpdate: &appsv1.RollingUpdateDeployment{
					MaxUnavailable: &maxUnavailable,
					MaxSurge:       &maxSurge,
				},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: selectorLabels(app),
					Annotations: map[string]string{
						EnvironmentAnnotation: annotation,
					},
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{container},
				},
			},
		},
	}

	if app.ImagePullSecret != "" {
		dep.Spec.Template.Spec.ImagePullSecrets = []corev1.LocalObjectReference{
			{Name: app.ImagePullSecret},
		}
	}

	if len(app.DeploymentOverlay) > 0 {
		if err := Apply(dep, app.DeploymentOverlay, "deploymentSpec"); err != nil {
			return nil, err
		}
	}

	return dep, nil
}

// environmentAnnotation renders the machine-readable environment descriptor
// attached to every pod template.
func environmentAnnotation(app *apps.Application, cfg Config) (string, error) {
	desc := struct {
		Environment string   `json:"environment"`
		Webhooks    []string `json:"webhooks,omitempty"`
	}{
		Environment: cfg.Environment,
	}
	if cfg.WebhookBaseURL != "" {
		desc.Webhooks = []string{fmt.Sprintf("%s/teams/%s", cfg.WebhookBaseURL, app.Team)}
	}

	raw, err := json.Marshal(desc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal environment annotation: %w", err)
	}
	return string(raw), nil
}
