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

package apps

import (
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func validApp() *Application {
	port := int32(8080)
	return &Application{
		Name:        "playground",
		Namespace:   "testing",
		Team:        "losgatos1",
		Environment: "testing",
		Image:       "atomist/playground:1.0.0",
		Port:        &port,
		Path:        "/playground",
	}
}

var _ = Describe("Application", func() {
	Context("Validate", func() {
		It("accepts a complete descriptor", func() {
			Expect(validApp().Validate("testing")).To(Succeed())
		})

		It("rejects a missing name", func() {
			app := validApp()
			app.Name = ""
			err := app.Validate("testing")
			Expect(err).To(HaveOccurred())

			var verr *ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("name"))
		})

		It("rejects a missing namespace", func() {
			app := validApp()
			app.Namespace = ""
			Expect(app.Validate("testing")).To(HaveOccurred())
		})

		It("rejects a missing image", func() {
			app := validApp()
			app.Image = ""
			Expect(app.Validate("testing")).To(HaveOccurred())
		})

		It("rejects an environment mismatch", func() {
			app := validApp()
			err := app.Validate("production")
			Expect(err).To(HaveOccurred())

			var verr *ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("environment"))
		})

		It("rejects an out-of-range port", func() {
			app := validApp()
			port := int32(70000)
			app.Port = &port
			Expect(app.Validate("testing")).To(HaveOccurred())
		})

		It("rejects a path without a port", func() {
			app := validApp()
			app.Port = nil
			err := app.Validate("testing")
			Expect(err).To(HaveOccurred())

			var verr *ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("path"))
		})

		It("accepts a descriptor without port or path", func() {
			app := validApp()
			app.Port = nil
			app.Path = ""
			Expect(app.Validate("testing")).To(Succeed())
		})
	})

	Context("URL", func() {
		It("composes scheme, host and path", func() {
			app := validApp()
			app.Host = "apps.example.com"
			app.Protocol = "https"
			Expect(app.URL("fallback.example.com")).To(Equal("https://apps.example.com/playground"))
		})

		It("defaults to http and the configured host", func() {
			app := validApp()
			Expect(app.URL("apps.example.com")).To(Equal("http://apps.example.com/playground"))
		})

		It("is empty without an ingress path", func() {
			app := validApp()
			app.Path = ""
			Expect(app.URL("apps.example.com")).To(BeEmpty())
		})
	})

	Context("JSON round trip", func() {
		It("carries overlays as raw fragments", func() {
			raw := []byte(`{"name":"playground","ns":"testing","team":"losgatos1",` +
				`"environment":"testing","image":"atomist/playground:1.0.0",` +
				`"deploymentSpec":{"spec":{"replicas":2}}}`)

			var app Application
			Expect(json.Unmarshal(raw, &app)).To(Succeed())
			Expect(app.DeploymentOverlay).To(MatchJSON(`{"spec":{"replicas":2}}`))
			Expect(app.ServiceOverlay).To(BeNil())
		})
	})
})
