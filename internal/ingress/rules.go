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

package ingress

import (
	"fmt"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// ClassAnnotation selects the ingress controller serving the shared
	// resource.
	ClassAnnotation = "kubernetes.io/ingress.class"

	managedByLabel = "apps.deployd.io/managed-by"
	managedBy      = "deployd"
)

// Route is one application's claim on the shared ingress: a (host, path)
// pair bound to the application's service. An empty Host addresses the
// wildcard rule.
type Route struct {
	Host        string
	Path        string
	ServiceName string
	ServicePort int32
}

// Outcome reports what a rule operation did to the in-memory ingress.
type Outcome int

const (
	// Unchanged means the ingress already matched the request; no write
	// is needed.
	Unchanged Outcome = iota

	// Added means the route was inserted and the ingress must be written
	// back.
	Added

	// Removed means the route was deleted and the ingress must be written
	// back.
	Removed

	// DeleteResource means the last route is gone and the whole ingress
	// resource must be deleted, not patched to an empty shell.
	DeleteResource
)

// ConflictError reports an attempt to claim or release a path owned by a
// different backend service.
type ConflictError struct {
	Host    string
	Path    string
	Owner   string
	Claimed string
}

func (e *ConflictError) Error() string {
	host := e.Host
	if host == "" {
		host = "*"
	}
	return fmt.Sprintf("ingress path %s%s is owned by service %q, not %q", host, e.Path, e.Owner, e.Claimed)
}

// Insert adds a route to the ingress. It returns Added when the ingress was
// mutated and must be written back, Unchanged when the identical route is
// already registered, and a ConflictError when the (host, path) pair is
// bound to a different backend. On conflict the ingress is left untouched.
func Insert(ing *networkingv1.Ingress, route Route) (Outcome, error) {
	for i := range ing.Spec.Rules {
		rule := &ing.Spec.Rules[i]
		if rule.Host != route.Host {
			continue
		}

		if rule.HTTP == nil {
			rule.HTTP = &networkingv1.HTTPIngressRuleValue{}
		}
		for j := range rule.HTTP.Paths {
			path := &rule.HTTP.Paths[j]
			if path.Path != route.Path {
				continue
			}
			owner := backendService(path)
			if owner == route.ServiceName {
				return Unchanged, nil
			}
			return Unchanged, &ConflictError{
				Host:    route.Host,
				Path:    route.Path,
				Owner:   owner,
				Claimed: route.ServiceName,
			}
		}

		rule.HTTP.Paths = append(rule.HTTP.Paths, httpPath(route))
		return Added, nil
	}

	ing.Spec.Rules = append(ing.Spec.Rules, ingressRule(route))
	return Added, nil
}

// Remove deletes a route from the ingress. Missing rules and paths are
// Unchanged: removal is idempotent. A path owned by a different backend is
// a ConflictError and the ingress is left untouched. When the last path of
// a rule goes, the rule goes with it; when the last rule goes, the result
// is DeleteResource.
func Remove(ing *networkingv1.Ingress, route Route) (Outcome, error) {
	for i := range ing.Spec.Rules {
		rule := &ing.Spec.Rules[i]
		if rule.Host != route.Host {
			continue
		}
		if rule.HTTP == nil {
			return Unchanged, nil
		}

		for j := range rule.HTTP.Paths {
			path := &rule.HTTP.Paths[j]
			if path.Path != route.Path {
				continue
			}
			if owner := backendService(path); owner != route.ServiceName {
				return Unchanged, &ConflictError{
					Host:    route.Host,
					Path:    route.Path,
					Owner:   owner,
					Claimed: route.ServiceName,
				}
			}

			rule.HTTP.Paths = append(rule.HTTP.Paths[:j], rule.HTTP.Paths[j+1:]...)
			if len(rule.HTTP.Paths) == 0 {
				ing.Spec.Rules = append(ing.Spec.Rules[:i], ing.Spec.Rules[i+1:]...)
			}
			if len(ing.Spec.Rules) == 0 {
				return DeleteResource, nil
			}
			return Removed, nil
		}
		return Unchanged, nil
	}
	return Unchanged, nil
}

// New builds the shared ingress for its first route. The resource is
// created lazily: it does not exist until some application needs a rule.
func New(name, namespace, class string, route Route) *networkingv1.Ingress {
	ing := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels: map[string]string{
				managedByLabel: managedBy,
			},
		},
	}
	if class != "" {
		ing.Annotations = map[string]string{ClassAnnotation: class}
	}
	ing.Spec.Rules = []networkingv1.IngressRule{ingressRule(route)}
	return ing
}

func ingressRule(route Route) networkingv1.IngressRule {
	return networkingv1.IngressRule{
		Host: route.Host,
		IngressRuleValue: networkingv1.IngressRuleValue{
			HTTP: &networkingv1.HTTPIngressRuleValue{
				Paths: []networkingv1.HTTPIngressPath{httpPath(route)},
			},
		},
	}
}

func httpPath(route Route) networkingv1.HTTPIngressPath {
	pathType := networkingv1.PathTypePrefix
	return networkingv1.HTTPIngressPath{
		Path:     route.Path,
		PathType: &pathType,
		Backend: networkingv1.IngressBackend{
			Service: &networkingv1.IngressServiceBackend{
				Name: route.ServiceName,
				Port: networkingv1.ServiceBackendPort{
					Number: route.ServicePort,
				},
			},
		},
	}
}

func backendService(path *networkingv1.HTTPIngressPath) string {
	if path.Backend.Service == nil {
		return ""
	}
	return path.Backend.Service.Name
}
