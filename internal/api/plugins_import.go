package api

// Blank-importing every per-module extension package here runs its
// init() registration exactly once, regardless of which cmd/ binary
// links internal/api.
import (
	_ "github.com/JoelCooperPhD/sessionctl/internal/api/plugins/audio"
	_ "github.com/JoelCooperPhD/sessionctl/internal/api/plugins/cameras"
	_ "github.com/JoelCooperPhD/sessionctl/internal/api/plugins/drt"
	_ "github.com/JoelCooperPhD/sessionctl/internal/api/plugins/eyetracker"
	_ "github.com/JoelCooperPhD/sessionctl/internal/api/plugins/gps"
	_ "github.com/JoelCooperPhD/sessionctl/internal/api/plugins/notes"
	_ "github.com/JoelCooperPhD/sessionctl/internal/api/plugins/vog"
)
