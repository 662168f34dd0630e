//go:generate mockgen -destination=./mock_logger.go -package=mocks github.com/Gunvolt24/cnshell/pkg/logger Logger
//go:generate mockgen -destination=./mock_shell.go  -package=mocks github.com/Gunvolt24/cnshell/pkg/shell App,Extension

package mocks
