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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/mikelane/deployd/internal/apps"
)

var descriptorFile string

func init() {
	applyCmd.Flags().StringVarP(&descriptorFile, "file", "f", "", "Application descriptor file (YAML or JSON)")
	deleteCmd.Flags().StringVarP(&descriptorFile, "file", "f", "", "Application descriptor file (YAML or JSON)")
}

// loadApplication reads an application descriptor from a YAML or JSON file.
func loadApplication(path string) (*apps.Application, error) {
	if path == "" {
		return nil, fmt.Errorf("a descriptor file is required (-f)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	app := &apps.Application{}
	if err := yaml.Unmarshal(data, app); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
	}
	return app, nil
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Deploy or update an application from a descriptor file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if environment == "" {
			return fmt.Errorf("--environment is required")
		}

		app, err := loadApplication(descriptorFile)
		if err != nil {
			return err
		}

		engine, err := newEngine()
		if err != nil {
			return fmt.Errorf("failed to create deploy engine: %w", err)
		}

		if err := engine.Upsert(context.Background(), app); err != nil {
			return err
		}

		if url := engine.URL(app); url != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "deployed %s/%s at %s\n", app.Namespace, app.Name, url)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "deployed %s/%s\n", app.Namespace, app.Name)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove an application's resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		if environment == "" {
			return fmt.Errorf("--environment is required")
		}

		app, err := loadApplication(descriptorFile)
		if err != nil {
			return err
		}

		engine, err := newEngine()
		if err != nil {
			return fmt.Errorf("failed to create deploy engine: %w", err)
		}

		if err := engine.Delete(context.Background(), app); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "removed %s/%s\n", app.Namespace, app.Name)
		return nil
	},
}
