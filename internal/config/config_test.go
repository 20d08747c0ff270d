package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	LoadDefaults()

	if Global.MemPerCPUGB != 4 {
		t.Errorf("MemPerCPUGB = %d; want 4", Global.MemPerCPUGB)
	}
	if Global.MaxWalltimeHours != 168 {
		t.Errorf("MaxWalltimeHours = %d; want 168", Global.MaxWalltimeHours)
	}
	if Global.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %s; want 30s", Global.PollInterval)
	}
	if Global.TransientBackoff != 2*time.Minute {
		t.Errorf("TransientBackoff = %s; want 2m", Global.TransientBackoff)
	}
	if Global.QstatBin != "qstat" || Global.QsubBin != "qsub" {
		t.Errorf("scheduler binaries = %q, %q; want qstat, qsub", Global.QstatBin, Global.QsubBin)
	}
	if len(Global.GpuTypes) == 0 {
		t.Error("GpuTypes is empty; want at least one accepted tag")
	}
}

func TestLoadDefaultsResetsOverrides(t *testing.T) {
	LoadDefaults()
	Global.MemPerCPUGB = 99
	Global.QstatBin = "/opt/pbs/bin/qstat"

	// A fresh default set must not carry earlier overrides.
	LoadDefaults()
	if Global.MemPerCPUGB != 4 {
		t.Errorf("MemPerCPUGB = %d after reload; want 4", Global.MemPerCPUGB)
	}
	if Global.QstatBin != "qstat" {
		t.Errorf("QstatBin = %q after reload; want qstat", Global.QstatBin)
	}
}

func TestCondaEnv(t *testing.T) {
	t.Setenv("CONDA_DEFAULT_ENV", "assembly-tools")
	if got := CondaEnv(); got != "assembly-tools" {
		t.Errorf("CondaEnv = %q; want assembly-tools", got)
	}

	t.Setenv("CONDA_DEFAULT_ENV", "")
	if got := CondaEnv(); got != "" {
		t.Errorf("CondaEnv = %q; want empty", got)
	}
}
