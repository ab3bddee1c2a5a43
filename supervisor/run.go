// Copyright 2025 TripFlow
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

package supervisor

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// RunOptions carries the runtime dependencies the entry point wires
// in, most importantly the in-process specialist handlers.
type RunOptions struct {
	// Handlers maps specialist names to in-process implementations.
	// Ignored when SPECIALIST_ENDPOINT selects the HTTP transport.
	Handlers map[string]SpecialistHandler
}

// Run starts the TripFlow supervisor service. Configuration comes from
// the YAML file at TRIPFLOW_CONFIG (default config/supervisor.yaml)
// plus environment variables for the optional integrations.
func Run(opts RunOptions) {
	log.Println("Starting TripFlow Supervisor...")

	configPath := getEnv("TRIPFLOW_CONFIG", "config/supervisor.yaml")
	config, err := LoadSupervisorConfig(configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	registry := NewRegistry(config)
	settings, err := config.CoordinationSettings()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	log.Printf("[Supervisor] Loaded %d specialist(s) from %s", len(registry.List()), configPath)

	// Transport: remote HTTP when an endpoint is configured, otherwise
	// the in-process handlers supplied by the entry point.
	var transport Transport
	if endpoint := os.Getenv("SPECIALIST_ENDPOINT"); endpoint != "" {
		log.Printf("[Supervisor] Using HTTP specialist transport at %s", endpoint)
		transport = NewHTTPTransport(endpoint)
	} else {
		if len(opts.Handlers) == 0 {
			log.Fatal("No specialist handlers provided and SPECIALIST_ENDPOINT not set")
		}
		for _, desc := range registry.List() {
			if _, ok := opts.Handlers[desc.Name]; !ok {
				log.Printf("[Supervisor] WARNING: specialist %q has no local handler; its calls will fail", desc.Name)
			}
		}
		transport = NewLocalTransport(opts.Handlers)
	}

	// Idempotency store is optional; without it mutating calls are
	// simply never retried.
	var idempotency *IdempotencyStore
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		idempotency, err = NewIdempotencyStore(addr, os.Getenv("REDIS_PASSWORD"))
		if err != nil {
			log.Fatalf("Idempotency store error: %v", err)
		}
		defer idempotency.Close()
	} else {
		log.Println("[Supervisor] REDIS_ADDR not set, idempotent replay disabled")
	}

	// Classification strategy: model-backed when a Bedrock region is
	// configured, deterministic keywords otherwise.
	var classifier Classifier = NewKeywordClassifier(registry)
	if region := os.Getenv("BEDROCK_REGION"); region != "" {
		bedrock, err := NewBedrockClassifier(region, os.Getenv("BEDROCK_MODEL"), registry)
		if err != nil {
			log.Fatalf("Bedrock classifier error: %v", err)
		}
		classifier = bedrock
	}

	analyzer := NewAnalyzer(registry, classifier, settings.FallbackSpecialist)
	invoker := NewInvoker(transport, settings, idempotency)
	consolidator := NewConsolidator(registry)
	coordinator := NewCoordinator(analyzer, invoker, consolidator, settings)
	api := NewAPIHandler(coordinator, registry)

	// Setup router
	r := mux.NewRouter()

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	// Health check and metrics
	r.HandleFunc("/health", api.HandleHealth).Methods("GET")
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")

	// Coordination API
	coordAPI := r.PathPrefix("/api/v1").Subrouter()
	coordAPI.Use(JWTMiddleware(os.Getenv("SUPERVISOR_JWT_SECRET")))
	coordAPI.HandleFunc("/requests", api.HandleRequest).Methods("POST")
	coordAPI.HandleFunc("/specialists", api.HandleListSpecialists).Methods("GET")

	// Start server
	port := getEnv("PORT", "8080")
	handler := c.Handler(r)
	log.Printf("TripFlow Supervisor listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}

// getEnv returns an environment variable or a default.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
