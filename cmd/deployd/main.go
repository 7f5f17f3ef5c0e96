/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package main is the entrypoint for deployd.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	// Load client auth plugins (gcp, azure, oidc, exec).
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"github.com/mikelane/deployd/internal/deploy"
	"github.com/mikelane/deployd/internal/retry"
)

var (
	scheme = runtime.NewScheme()

	// Version is set at build time
	Version = "dev"

	environment    string
	ingressName    string
	ingressClass   string
	ingressHost    string
	webhookBaseURL string
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))

	rootCmd.PersistentFlags().StringVar(&environment, "environment", "", "Deployment environment this instance serves (required)")
	rootCmd.PersistentFlags().StringVar(&ingressName, "ingress-name", "deployd-ingress", "Name of the shared ingress resource")
	rootCmd.PersistentFlags().StringVar(&ingressClass, "ingress-class", "nginx", "Ingress class for the shared ingress")
	rootCmd.PersistentFlags().StringVar(&ingressHost, "ingress-host", "", "Default host for application URLs")
	rootCmd.PersistentFlags().StringVar(&webhookBaseURL, "webhook-base-url", "", "Base URL recorded in pod annotations")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(deleteCmd)
}

var rootCmd = &cobra.Command{
	Use:     "deployd",
	Short:   "Deploys applications to Kubernetes on behalf of a delivery pipeline",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ctrl.SetLogger(zap.New(zap.UseDevMode(os.Getenv("DEBUG") == "true")))
	},
}

// newEngine builds a deploy engine against the cluster named by the
// ambient kubeconfig or in-cluster config.
func newEngine() (*deploy.Engine, error) {
	c, err := client.New(ctrl.GetConfigOrDie(), client.Options{Scheme: scheme})
	if err != nil {
		return nil, err
	}

	cfg := deploy.Config{
		Environment:    environment,
		IngressName:    ingressName,
		IngressClass:   ingressClass,
		IngressHost:    ingressHost,
		WebhookBaseURL: webhookBaseURL,
	}
	return deploy.NewEngine(c, cfg, retry.DefaultPolicy()), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
