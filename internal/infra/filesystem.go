package infra

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wardenbot/internal/config"
)

// GetWorkDir returns the bot state directory (config dot path plus the
// given segments), creating it on first use.
func GetWorkDir(path ...string) string {
	parts := append([]string{config.Get().DotPath}, path...)
	workDir := filepath.Join(parts...)
	if err := os.MkdirAll(workDir, os.ModePerm); err != nil {
		log.WithField("error", err.Error()).Fatalln("cant create work dir")
	}
	return workDir
}
