package config

const (
	defaultLibraryDir   = "~/pictures/library"
	defaultStagingDir   = "~/.local/share/shutterbox/staging"
	defaultLogDir       = "~/.local/share/shutterbox/logs"
	defaultLogFormat    = "pretty"
	defaultLogLevel     = "info"
	defaultSourceSubdir = "DCIM"
	defaultMountTimeout = 30
	defaultSettleDelay  = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Scan: Scan{
			Recursive:      true,
			MaxDepth:       0,
			FollowSymlinks: false,
			Extensions:     []string{".jpg", ".jpeg", ".png"},
		},
		Classify: Classify{
			KnownBadSoftware: []string{"picasa"},
			DeleteDuplicates: false,
			UndatedDir:       "",
		},
		Apply: Apply{
			Mode:              ApplyModeCopy,
			OverwriteExisting: false,
		},
		Watch: Watch{
			Enabled:      false,
			SourceSubdir: defaultSourceSubdir,
			MountTimeout: defaultMountTimeout,
			SettleDelay:  defaultSettleDelay,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
