package version

// Version is overridden at build time with -ldflags "-X docprobe/version.Version=...".
var Version = "dev"
