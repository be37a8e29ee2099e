/*
 *  cytoscape_test.go
 *  enrichmap
 *
 *  Created by Yang Qin on 04/07/21
 *  Copyright © 2021 Yang Qin. All rights reserved.
 */

package enrichmap_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emlab/enrichmap"
)

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/version" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"apiVersion":       "v1",
			"cytoscapeVersion": "3.9.1",
		})
	}))
	defer server.Close()

	client := enrichmap.NewCytoscapeClient(server.URL)
	version, err := client.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	if version != "3.9.1" {
		t.Errorf("version=%q; want 3.9.1", version)
	}
}

func TestPingUnreachable(t *testing.T) {
	client := enrichmap.NewCytoscapeClient("http://127.0.0.1:1")
	if _, err := client.Ping(context.Background()); err == nil {
		t.Error("Ping succeeded against a dead port")
	}
}

func TestBuildEnrichmentMap(t *testing.T) {
	var gotArgs map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/commands/enrichmentmap/build" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotArgs)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data":   map[string]interface{}{"network": 52},
			"errors": []interface{}{},
		})
	}))
	defer server.Close()

	client := enrichmap.NewCytoscapeClient(server.URL)
	suid, err := client.BuildEnrichmentMap(context.Background(), enrichmap.BuildParams{
		RanksFile:      "observed.rnk",
		EnrichmentFile: "report.xls",
		GmtFile:        "sets.gmt",
		PValue:         1.0,
		QValue:         0.05,
		SimilarityCut:  0.375,
		CoefficientT:   "COMBINED",
		NetworkName:    "testnet",
	})
	if err != nil {
		t.Fatalf("BuildEnrichmentMap returned error: %v", err)
	}
	if suid != 52 {
		t.Errorf("suid=%d; want 52", suid)
	}
	if gotArgs["ranksDataset1"] != "observed.rnk" || gotArgs["networkName"] != "testnet" {
		t.Errorf("unexpected request body %v", gotArgs)
	}
}

func TestCommandErrorSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such network", http.StatusNotFound)
	}))
	defer server.Close()

	client := enrichmap.NewCytoscapeClient(server.URL)
	err := client.Cluster(context.Background(), 999)
	if err == nil {
		t.Fatal("Cluster succeeded against an erroring server")
	}
}

func TestCommandEnvelopeErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data":   map[string]interface{}{},
			"errors": []interface{}{"app not installed"},
		})
	}))
	defer server.Close()

	client := enrichmap.NewCytoscapeClient(server.URL)
	if err := client.Annotate(context.Background(), 52); err == nil {
		t.Error("Annotate ignored errors in the CyREST envelope")
	}
}

func TestMapRunnerSequence(t *testing.T) {
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch r.URL.Path {
		case "/version":
			_ = json.NewEncoder(w).Encode(map[string]string{"cytoscapeVersion": "3.9.1"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data":   map[string]interface{}{"network": 7},
				"errors": []interface{}{},
			})
		}
	}))
	defer server.Close()

	runner := &enrichmap.MapRunner{
		RnkFile:     "observed.rnk",
		ReportFile:  "report.xls",
		GmtFile:     "sets.gmt",
		NetworkName: "testnet",
		BaseURL:     server.URL,
		QValue:      0.05,
	}
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("MapRunner returned error: %v", err)
	}
	expected := []string{
		"/version",
		"/commands/enrichmentmap/build",
		"/commands/cluster/mcl",
		"/commands/autoannotate/annotate-clusterBoosted",
	}
	if len(calls) != len(expected) {
		t.Fatalf("expected %d calls, got %v", len(expected), calls)
	}
	for i, want := range expected {
		if calls[i] != want {
			t.Errorf("call %d = %q; want %q", i, calls[i], want)
		}
	}
}
