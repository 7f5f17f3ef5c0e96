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
	"errors"
	"strings"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/mikelane/deployd/internal/apps"
)

func testApp(port *int32) *apps.Application {
	return &apps.Application{
		Name:        "playground",
		Namespace:   "testing",
		Team:        "losgatos1",
		Environment: "testing",
		Image:       "atomist/playground:1.0.0",
		Port:        port,
	}
}

func int32p(v int32) *int32 { return &v }

func testConfig() Config {
	return Config{
		Environment:    "testing",
		WebhookBaseURL: "https://deployd.example.com/events",
	}
}

func TestName(t *testing.T) {
	got := Name(testApp(nil))
	want := "rplayground-0-losgatos19"
	if got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
}

func TestNamespace(t *testing.T) {
	ns := Namespace(testApp(nil))
	if ns.Name != "testing" {
		t.Errorf("namespace name = %q, want %q", ns.Name, "testing")
	}
	if ns.Labels[ManagedByLabel] != "deployd" {
		t.Errorf("managed-by label = %q, want deployd", ns.Labels[ManagedByLabel])
	}
}

func TestService_NoPortMeansNoService(t *testing.T) {
	svc, err := Service(testApp(nil))
	if err != nil {
		t.Fatalf("Service() error = %v", err)
	}
	if svc != nil {
		t.Errorf("Service() = %v, want nil for a portless application", svc)
	}
}

func TestService_Defaults(t *testing.T) {
	svc, err := Service(testApp(int32p(8080)))
	if err != nil {
		t.Fatalf("Service() error = %v", err)
	}
	if svc == nil {
		t.Fatal("Service() returned nil for an application with a port")
	}

	if svc.Spec.Type != corev1.ServiceTypeNodePort {
		t.Errorf("service type = %v, want NodePort", svc.Spec.Type)
	}
	if svc.Spec.SessionAffinity != corev1.ServiceAffinityNone {
		t.Errorf("session affinity = %v, want None", svc.Spec.SessionAffinity)
	}
	if len(svc.Spec.Ports) != 1 {
		t.Fatalf("ports length = %d, want 1", len(svc.Spec.Ports))
	}
	port := svc.Spec.Ports[0]
	if port.Name != "http" || port.Protocol != corev1.ProtocolTCP || port.Port != 8080 {
		t.Errorf("port = %+v, want http/TCP/8080", port)
	}
	if svc.Spec.Selector["app"] != "rplayground-0-losgatos19" {
		t.Errorf("selector app = %q, want derived name", svc.Spec.Selector["app"])
	}
	if svc.Spec.Selector["team"] != "losgatos1" {
		t.Errorf("selector team = %q, want losgatos1", svc.Spec.Selector["team"])
	}
}

func TestService_OverlayArrayReplacesPorts(t *testing.T) {
	app := testApp(int32p(8080))
	app.ServiceOverlay = json.RawMessage(`{"spec":{"ports":[{"name":"grpc","port":9000,"protocol":"TCP"}]}}`)

	svc, err := Service(app)
	if err != nil {
		t.Fatalf("Service() error = %v", err)
	}
	if len(svc.Spec.Ports) != 1 {
		t.Fatalf("ports length = %d, want overlay array to replace wholesale", len(svc.Spec.Ports))
	}
	if svc.Spec.Ports[0].Name != "grpc" || svc.Spec.Ports[0].Port != 9000 {
		t.Errorf("port = %+v, want grpc/9000", svc.Spec.Ports[0])
	}
	// Non-array siblings survive the merge.
	if svc.Spec.Type != corev1.ServiceTypeNodePort {
		t.Errorf("service type = %v, want NodePort preserved", svc.Spec.Type)
	}
}

func TestDeployment_Defaults(t *testing.T) {
	dep, err := Deployment(testApp(int32p(8080)), testConfig())
	if err != nil {
		t.Fatalf("Deployment() error = %v", err)
	}

	if *dep.Spec.Replicas != 1 {
		t.Errorf("replicas = %d, want 1", *dep.Spec.Replicas)
	}
	if *dep.Spec.RevisionHistoryLimit != 3 {
		t.Errorf("revisionHistoryLimit = %d, want 3", *dep.Spec.RevisionHistoryLimit)
	}
	if dep.Spec.Strategy.Type != appsv1.RollingUpdateDeploymentStrategyType {
		t.Errorf("strategy type = %v, want RollingUpdate", dep.Spec.Strategy.Type)
	}
	if dep.Spec.Strategy.RollingUpdate.MaxUnavailable.IntValue() != 0 {
		t.Errorf("maxUnavailable = %v, want 0", dep.Spec.Strategy.RollingUpdate.MaxUnavailable)
	}
	if dep.Spec.Strategy.RollingUpdate.MaxSurge.IntValue() != 1 {
		t.Errorf("maxSurge = %v, want 1", dep.Spec.Strategy.RollingUpdate.MaxSurge)
	}

	container := dep.Spec.Template.Spec.Containers[0]
	if container.Image != "atomist/playground:1.0.0" {
		t.Errorf("image = %q", container.Image)
	}
	if container.ReadinessProbe == nil || container.LivenessProbe == nil {
		t.Fatal("expected HTTP probes for an application with a port")
	}
	if got := container.ReadinessProbe.HTTPGet.Port.IntValue(); got != 8080 {
		t.Errorf("readiness probe port = %d, want 8080", got)
	}

	var envs []string
	for _, env := range container.Env {
		envs = append(envs, env.Name+"="+env.Value)
	}
	joined := strings.Join(envs, ",")
	if !strings.Contains(joined, "DEPLOYD_TEAM=losgatos1") ||
		!strings.Contains(joined, "DEPLOYD_ENVIRONMENT=testing") {
		t.Errorf("container env = %v, want team and environment identity", envs)
	}
}

func TestDeployment_NoPortMeansNoProbes(t *testing.T) {
	dep, err := Deployment(testApp(nil), testConfig())
	if err != nil {
		t.Fatalf("Deployment() error = %v", err)
	}

	container := dep.Spec.Template.Spec.Containers[0]
	if container.ReadinessProbe != nil || container.LivenessProbe != nil {
		t.Error("portless application must not get probes")
	}
	if len(container.Ports) != 0 {
		t.Errorf("ports = %v, want none", container.Ports)
	}
}

func TestDeployment_EnvironmentAnnotation(t *testing.T) {
	dep, err := Deployment(testApp(int32p(8080)), testConfig())
	if err != nil {
		t.Fatalf("Deployment() error = %v", err)
	}

	raw := dep.Spec.Template.Annotations[EnvironmentAnnotation]
	if raw == "" {
		t.Fatal("pod template has no environment annotation")
	}

	var desc struct {
		Environment string   `json:"environment"`
		Webhooks    []string `json:"webhooks"`
	}
	if err := json.Unmarshal([]byte(raw), &desc); err != nil {
		t.Fatalf("annotation is not valid JSON: %v", err)
	}
	if desc.Environment != "testing" {
		t.Errorf("annotation environment = %q, want testing", desc.Environment)
	}
	if len(desc.Webhooks) != 1 || !strings.HasSuffix(desc.Webhooks[0], "/teams/losgatos1") {
		t.Errorf("annotation webhooks = %v, want one per-team webhook", desc.Webhooks)
	}
}

func TestDeployment_ImagePullSecret(t *testing.T) {
	app := testApp(int32p(8080))
	app.ImagePullSecret = "registry-creds"

	dep, err := Deployment(app, testConfig())
	if err != nil {
		t.Fatalf("Deployment() error = %v", err)
	}

	secrets := dep.Spec.Template.Spec.ImagePullSecrets
	if len(secrets) != 1 || secrets[0].Name != "registry-creds" {
		t.Errorf("imagePullSecrets = %v, want registry-creds", secrets)
	}
}

func TestDeployment_OverlayReplacesContainersWholesale(t *testing.T) {
	app := testApp(int32p(8080))
	app.DeploymentOverlay = json.RawMessage(
		`{"spec":{"template":{"spec":{"containers":[{"name":"x","image":"busybox"}]}}}}`)

	dep, err := Deployment(app, testConfig())
	if err != nil {
		t.Fatalf("Deployment() error = %v", err)
	}

	containers := dep.Spec.Template.Spec.Containers
	if len(containers) != 1 {
		t.Fatalf("containers length = %d, want 1", len(containers))
	}
	if containers[0].Name != "x" || containers[0].Image != "busybox" {
		t.Errorf("container = %+v, want overlay container", containers[0])
	}
}

func TestDeployment_OverlayScalarKeepsSiblings(t *testing.T) {
	app := testApp(int32p(8080))
	app.DeploymentOverlay = json.RawMessage(`{"spec":{"replicas":3}}`)

	dep, err := Deployment(app, testConfig())
	if err != nil {
		t.Fatalf("Deployment() error = %v", err)
	}

	if *dep.Spec.Replicas != 3 {
		t.Errorf("replicas = %d, want overlay value 3", *dep.Spec.Replicas)
	}
	if dep.Spec.Strategy.Type != appsv1.RollingUpdateDeploymentStrategyType {
		t.Error("sibling strategy field was lost during overlay merge")
	}
	if dep.Spec.Template.Spec.Containers[0].Image != "atomist/playground:1.0.0" {
		t.Error("sibling template field was lost during overlay merge")
	}
}

func TestDeployment_MalformedOverlayIsValidationError(t *testing.T) {
	app := testApp(int32p(8080))
	app.DeploymentOverlay = json.RawMessage(`{not json`)

	_, err := Deployment(app, testConfig())
	if err == nil {
		t.Fatal("expected an error for a malformed overlay")
	}

	var verr *apps.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %T, want *apps.ValidationError", err)
	}
}

func TestService_MalformedOverlayIsValidationError(t *testing.T) {
	app := testApp(int32p(8080))
	app.ServiceOverlay = json.RawMessage(`[]`)

	_, err := Service(app)
	if err == nil {
		t.Fatal("expected an error for a non-object overlay")
	}

	var verr *apps.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %T, want *apps.ValidationError", err)
	}
}
