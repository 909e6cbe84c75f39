/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"testing"
)

const testconf = "testconfig"

func TestConfig(t *testing.T) {

	ioutil.WriteFile(testconf, []byte(`{
    "StoreLayout": "classic",
    "ScanThreads": 3
}`), 0644)

	defer func() {
		if err := os.Remove(testconf); err != nil {
			fmt.Print("Could not remove test config file:", err.Error())
		}
	}()

	conf, err := LoadPropertiesFile(testconf)
	if err != nil {
		t.Error(err)
		return
	}

	if res := conf.Str(StoreLayout); res != LayoutClassic {
		t.Error("Unexpected result:", res)
		return
	}

	if res := conf.Int(ScanThreads); res != 3 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := conf.Bool(MemoryOnlyStorage); !res {
		t.Error("Unexpected result:", res)
		return
	}

	if res := conf.Int(ScanBufferSize); fmt.Sprint(res) != fmt.Sprint(DefaultConfig[ScanBufferSize]) {
		t.Error("Unexpected result:", res)
		return
	}

	if err := conf.Check(); err != nil {
		t.Error(err)
		return
	}

	conf = NewProperties(map[string]interface{}{StoreLayout: "foo"})

	if err := conf.Check(); err == nil || err.Error() != "Unknown store layout: foo" {
		t.Error("Unexpected result:", err)
		return
	}

	conf = NewProperties(map[string]interface{}{ValueCompression: "gzip"})

	if err := conf.Check(); err == nil || err.Error() != "Unknown value compression: gzip" {
		t.Error("Unexpected result:", err)
		return
	}

	conf = NewProperties(map[string]interface{}{ScanThreads: "x"})

	if err := conf.Check(); err == nil || err.Error() != "Config key ScanThreads is not a number: x" {
		t.Error("Unexpected result:", err)
		return
	}

	for _, k := range []string{ScanThreads, MaxConcurrentScans, ScanBufferSize, CommitThreads} {
		conf = NewProperties(map[string]interface{}{k: 0})

		if err := conf.Check(); err == nil || err.Error() != fmt.Sprintf("Config key %v must be at least 1: 0", k) {
			t.Error("Unexpected result:", err)
			return
		}
	}

	conf = NewProperties(map[string]interface{}{ScanTimeoutSeconds: -1})

	if err := conf.Check(); err == nil || err.Error() != "Config key ScanTimeoutSeconds must be at least 0: -1" {
		t.Error("Unexpected result:", err)
		return
	}

	conf = NewProperties(map[string]interface{}{MemoryOnlyStorage: "x"})

	if err := conf.Check(); err == nil {
		t.Error("Unexpected result:", err)
		return
	}

	// Defaults must not be modified through a properties object

	conf = DefaultProperties()
	conf[StoreLayout] = LayoutClassic

	if DefaultConfig[StoreLayout] != LayoutByteEntity {
		t.Error("Default config was modified")
		return
	}

	// Parse errors panic

	defer func() {
		if r := recover(); r == nil {
			t.Error("Parsing an invalid value should cause a panic")
		}
	}()

	conf[ScanThreads] = "abc"
	conf.Int(ScanThreads)
}
