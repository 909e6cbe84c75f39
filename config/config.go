/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package config contains the configuration of a graph store.

A configuration is a flat map of settings. Missing settings are filled in
from DefaultConfig. A configuration can be loaded from a JSON file which is
created with the default settings if it does not exist.
*/
package config

import (
	"fmt"
	"strconv"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/fileutil"
)

// Global variables
// ================

/*
DefaultConfigFile is the default config file which will be used to configure a store
*/
var DefaultConfigFile = "kvgraph.config.json"

/*
Known configuration options
*/
const (
	StoreLayout        = "StoreLayout"
	ValueCompression   = "ValueCompression"
	MemoryOnlyStorage  = "MemoryOnlyStorage"
	LocationDatastore  = "LocationDatastore"
	ScanThreads        = "ScanThreads"
	MaxConcurrentScans = "MaxConcurrentScans"
	ScanTimeoutSeconds = "ScanTimeoutSeconds"
	ScanBufferSize     = "ScanBufferSize"
	SetupCacheMaxSize  = "SetupCacheMaxSize"
	CommitThreads      = "CommitThreads"
)

/*
Known store layouts
*/
const (
	LayoutByteEntity = "byteEntity"
	LayoutClassic    = "classic"
)

/*
Known value compression algorithms
*/
const (
	CompressionNone = "none"
	CompressionLZ4  = "lz4"
	CompressionZstd = "zstd"
)

/*
DefaultConfig is the default configuration
*/
var DefaultConfig = map[string]interface{}{
	StoreLayout:        LayoutByteEntity,
	ValueCompression:   CompressionNone,
	MemoryOnlyStorage:  true,
	LocationDatastore:  "db",
	ScanThreads:        10,
	MaxConcurrentScans: 64,
	ScanTimeoutSeconds: 0,
	ScanBufferSize:     1000,
	SetupCacheMaxSize:  100,
	CommitThreads:      4,
}

/*
Properties is a store configuration.
*/
type Properties map[string]interface{}

/*
DefaultProperties returns a copy of the default configuration.
*/
func DefaultProperties() Properties {
	data := make(Properties)
	for k, v := range DefaultConfig {
		data[k] = v
	}
	return data
}

/*
NewProperties creates a configuration from a given map. Missing settings are
filled in from the default configuration.
*/
func NewProperties(settings map[string]interface{}) Properties {
	data := DefaultProperties()
	for k, v := range settings {
		if v != nil {
			data[k] = v
		}
	}
	return data
}

/*
LoadPropertiesFile loads a given config file. If the config file does not
exist it is created with the default options.
*/
func LoadPropertiesFile(configfile string) (Properties, error) {
	data, err := fileutil.LoadConfig(configfile, DefaultProperties())
	if err != nil {
		return nil, err
	}

	return Properties(data), nil
}

// Helper functions
// ================

/*
Str reads a config value as a string value.
*/
func (p Properties) Str(key string) string {
	return fmt.Sprint(p[key])
}

/*
Int reads a config value as an int value.
*/
func (p Properties) Int(key string) int64 {
	ret, err := strconv.ParseInt(fmt.Sprint(p[key]), 10, 64)

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

/*
Bool reads a config value as a boolean value.
*/
func (p Properties) Bool(key string) bool {
	ret, err := strconv.ParseBool(fmt.Sprint(p[key]))

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

/*
minValues are the smallest allowed values of the numeric settings.
*/
var minValues = map[string]int64{
	ScanThreads:        1,
	MaxConcurrentScans: 1,
	ScanTimeoutSeconds: 0,
	ScanBufferSize:     1,
	SetupCacheMaxSize:  0,
	CommitThreads:      1,
}

/*
Check verifies that all numeric and boolean settings can be parsed, that
numeric settings are in range and that the layout and compression settings
are known.
*/
func (p Properties) Check() error {

	for _, k := range []string{ScanThreads, MaxConcurrentScans, ScanTimeoutSeconds,
		ScanBufferSize, SetupCacheMaxSize, CommitThreads} {

		v, err := strconv.ParseInt(fmt.Sprint(p[k]), 10, 64)
		if err != nil {
			return fmt.Errorf("Config key %v is not a number: %v", k, p[k])
		}

		if v < minValues[k] {
			return fmt.Errorf("Config key %v must be at least %v: %v", k, minValues[k], v)
		}
	}

	if _, err := strconv.ParseBool(fmt.Sprint(p[MemoryOnlyStorage])); err != nil {
		return fmt.Errorf("Config key %v is not a boolean: %v", MemoryOnlyStorage, p[MemoryOnlyStorage])
	}

	if l := p.Str(StoreLayout); l != LayoutByteEntity && l != LayoutClassic {
		return fmt.Errorf("Unknown store layout: %v", l)
	}

	if c := p.Str(ValueCompression); c != CompressionNone && c != CompressionLZ4 && c != CompressionZstd {
		return fmt.Errorf("Unknown value compression: %v", c)
	}

	return nil
}
