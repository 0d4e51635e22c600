package internal

// Version is the build version, set at build time with
// -ldflags "-X github.com/blockdaemon/lz-dvn-config/internal.Version=..."
var Version = "dev"
