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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/mikelane/deployd/internal/github"
	"github.com/mikelane/deployd/internal/retry"
	"github.com/mikelane/deployd/internal/webhook"
)

var (
	serveAddr     string
	servePort     int
	webhookSecret string
	githubToken   string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "0.0.0.0", "Address the webhook server binds to")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port the webhook server listens on")
	serveCmd.Flags().StringVar(&webhookSecret, "secret", "", "Webhook HMAC secret (or DEPLOYD_WEBHOOK_SECRET)")
	serveCmd.Flags().StringVar(&githubToken, "github-token", "", "GitHub token for commit statuses (or GITHUB_TOKEN)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server that receives deployment events",
	RunE: func(cmd *cobra.Command, args []string) error {
		if environment == "" {
			return fmt.Errorf("--environment is required")
		}

		if webhookSecret == "" {
			webhookSecret = os.Getenv("DEPLOYD_WEBHOOK_SECRET")
		}
		if webhookSecret == "" {
			return fmt.Errorf("webhook secret is required (--secret or DEPLOYD_WEBHOOK_SECRET)")
		}
		if githubToken == "" {
			githubToken = os.Getenv("GITHUB_TOKEN")
		}

		engine, err := newEngine()
		if err != nil {
			return fmt.Errorf("failed to create deploy engine: %w", err)
		}

		var notifier github.Notifier
		if githubToken != "" {
			notifier, err = github.NewNotifier(githubToken, retry.DefaultPolicy())
			if err != nil {
				return fmt.Errorf("failed to create GitHub notifier: %w", err)
			}
		}

		server := webhook.NewServer(serveAddr, servePort, engine, notifier, webhookSecret)
		return server.Start(ctrl.SetupSignalHandler())
	},
}
