package resources

import "embed"

//go:embed migrations escalation.yml
var FS embed.FS
