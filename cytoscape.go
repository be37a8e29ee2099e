/*
 * Filename: /Users/yqin/code/enrichmap/cytoscape.go
 * Path: /Users/yqin/code/enrichmap
 * Created Date: Sunday, March 28th 2021, 1:17:33 pm
 * Author: yqin
 *
 * Copyright (c) 2021 Yang Qin
 */

package enrichmap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"
)

// CytoscapeClient drives a running Cytoscape through its CyREST API. All
// calls are plain JSON over HTTP; the network SUID returned by the build
// call keys every later clustering and annotation command.
type CytoscapeClient struct {
	BaseURL string
	hc      *http.Client
}

// NewCytoscapeClient points a client at a CyREST base URL such as
// http://localhost:1234/v1
func NewCytoscapeClient(baseURL string) *CytoscapeClient {
	return &CytoscapeClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 2 * time.Minute},
	}
}

// commandResponse is the CyREST command envelope
type commandResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []interface{}   `json:"errors"`
}

// Ping checks that Cytoscape is reachable and returns its version. A
// connection failure here means the service is simply not running, which is
// the actionable message the caller should surface.
func (r *CytoscapeClient) Ping(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := r.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("Cytoscape is not reachable at %s (is it running with CyREST enabled?): %v",
			r.BaseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", httpError(resp)
	}
	var version struct {
		CytoscapeVersion string `json:"cytoscapeVersion"`
		APIVersion       string `json:"apiVersion"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return "", fmt.Errorf("cannot decode CyREST version: %v", err)
	}
	return version.CytoscapeVersion, nil
}

// postCommand POSTs one CyREST automation command and decodes the data part
// of the envelope into out (which may be nil)
func (r *CytoscapeClient) postCommand(ctx context.Context, command string, args, out interface{}) error {
	body, err := json.Marshal(args)
	if err != nil {
		return err
	}
	url := r.BaseURL + "/commands/" + command
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.hc.Do(req)
	if err != nil {
		return fmt.Errorf("CyREST command `%s` failed: %v", command, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError(resp)
	}
	var envelope commandResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("cannot decode CyREST response for `%s`: %v", command, err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("CyREST command `%s` reported errors: %v", command, envelope.Errors)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("cannot decode data of `%s`: %v", command, err)
		}
	}
	return nil
}

// BuildParams configures the EnrichmentMap build command
type BuildParams struct {
	RanksFile      string  `json:"ranksDataset1"`
	EnrichmentFile string  `json:"enrichmentsDataset1"`
	GmtFile        string  `json:"gmtFile"`
	PValue         float64 `json:"pvalue"`
	QValue         float64 `json:"qvalue"`
	SimilarityCut  float64 `json:"similaritycutoff"`
	CoefficientT   string  `json:"coefficients"`
	NetworkName    string  `json:"networkName"`
}

// BuildEnrichmentMap asks the EnrichmentMap app to build a network from one
// run's report and ranks, returning the new network's SUID
func (r *CytoscapeClient) BuildEnrichmentMap(ctx context.Context, p BuildParams) (int64, error) {
	var data struct {
		Network int64 `json:"network"`
	}
	if err := r.postCommand(ctx, "enrichmentmap/build", p, &data); err != nil {
		return 0, err
	}
	if data.Network == 0 {
		return 0, fmt.Errorf("enrichmentmap/build returned no network SUID")
	}
	log.Noticef("Built enrichment map network SUID %d", data.Network)
	return data.Network, nil
}

// Cluster runs clusterMaker2 MCL on the network, using the overlap
// similarity edge attribute that EnrichmentMap created
func (r *CytoscapeClient) Cluster(ctx context.Context, networkSUID int64) error {
	args := map[string]interface{}{
		"network":          networkSUID,
		"attribute":        "EnrichmentMap::similarity_coefficient",
		"clusterAttribute": "__mclCluster",
		"showUI":           false,
	}
	return r.postCommand(ctx, "cluster/mcl", args, nil)
}

// Annotate labels the clusters with AutoAnnotate
func (r *CytoscapeClient) Annotate(ctx context.Context, networkSUID int64) error {
	args := map[string]interface{}{
		"network":         networkSUID,
		"clusterIdColumn": "__mclCluster",
		"labelColumn":     "EnrichmentMap::GS_DESCR",
		"useClusterMaker": false,
	}
	return r.postCommand(ctx, "autoannotate/annotate-clusterBoosted", args, nil)
}

// httpError renders a non-2xx response with its body, which CyREST uses for
// its error detail
func httpError(resp *http.Response) error {
	body, _ := ioutil.ReadAll(resp.Body)
	return fmt.Errorf("CyREST %s %s: HTTP %d: %s",
		resp.Request.Method, resp.Request.URL.Path, resp.StatusCode,
		strings.TrimSpace(string(body)))
}

// MapRunner sequences the full visualization step for one results directory:
// ping, build, cluster, annotate
type MapRunner struct {
	RnkFile     string
	ReportFile  string
	GmtFile     string
	NetworkName string
	BaseURL     string
	QValue      float64
}

// Run drives Cytoscape end to end
func (r *MapRunner) Run(ctx context.Context) error {
	client := NewCytoscapeClient(r.BaseURL)
	version, err := client.Ping(ctx)
	if err != nil {
		return err
	}
	log.Noticef("Connected to Cytoscape %s at %s", version, r.BaseURL)

	suid, err := client.BuildEnrichmentMap(ctx, BuildParams{
		RanksFile:      r.RnkFile,
		EnrichmentFile: r.ReportFile,
		GmtFile:        r.GmtFile,
		PValue:         1.0,
		QValue:         r.QValue,
		SimilarityCut:  0.375,
		CoefficientT:   "COMBINED",
		NetworkName:    r.NetworkName,
	})
	if err != nil {
		return err
	}
	if err := client.Cluster(ctx, suid); err != nil {
		return err
	}
	if err := client.Annotate(ctx, suid); err != nil {
		return err
	}
	log.Noticef("Enrichment map %d clustered and annotated", suid)
	return nil
}
