/*
 * Filename: /Users/yqin/code/enrichmap/base.go
 * Path: /Users/yqin/code/enrichmap
 * Created Date: Monday, March 15th 2021, 9:12:41 pm
 * Author: yqin
 *
 * Copyright (c) 2021 Yang Qin
 */

package enrichmap

import (
	"fmt"
	"math"
	"os"
	"path"
	"strings"

	logging "github.com/op/go-logging"
)

const (
	// Version is the current version of enrichmap
	Version = "0.3.2"
	// DefaultPermutations is the number of class-label randomizations, also
	// the denominator of the empirical FDR
	DefaultPermutations = 1000
	// DefaultMinCPM is the counts-per-million cutoff for low expression filtering
	DefaultMinCPM = 1.0
	// DefaultQCutoff is the FDR cutoff used when calling a gene set significant
	DefaultQCutoff = 0.05
	// DefaultGseaMinSize is the smallest gene set GSEA will test
	DefaultGseaMinSize = 15
	// DefaultGseaMaxSize is the largest gene set GSEA will test
	DefaultGseaMaxSize = 500
	// DefaultGseaMemGB is the java heap given to GSEA
	DefaultGseaMemGB = 4
	// DefaultTimeoutMinutes bounds a single external GSEA invocation
	DefaultTimeoutMinutes = 30
	// DefaultCyRESTURL is where a running Cytoscape listens
	DefaultCyRESTURL = "http://localhost:1234/v1"
	// MinPValue is the floor applied before taking -log10 of a p-value
	MinPValue = 1e-300
)

var log = logging.MustGetLogger("enrichmap")
var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05} %{shortfunc} | %{level:.6s} %{color:reset} %{message}`,
)

// Backend is the default stderr output
var Backend = logging.NewLogBackend(os.Stderr, "", 0)

// BackendFormatter contains the fancy debug formatter
var BackendFormatter = logging.NewBackendFormatter(Backend, format)

// RemoveExt returns the substring minus the extension
func RemoveExt(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}

// Percentage prints a human readable message of count and total
func Percentage(a, b int) string {
	return fmt.Sprintf("%d of %d (%.1f %%)", a, b, float64(a)*100./float64(b))
}

// Round makes a round number
func Round(input float64) float64 {
	if input < 0 {
		return math.Ceil(input - 0.5)
	}
	return math.Floor(input + 0.5)
}

// Sign returns -1, 0 or 1 depending on the sign of x
func Sign(x float64) float64 {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

// mkdir creates a directory along with any parents
func mkdir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create directory `%s`: %v", dir, err)
	}
	return nil
}
