// Package builtin assembles the tool modules that ship with the
// orchestrator. Modules register here at startup and the local provider
// consumes the table; there is no runtime scanning.
package builtin

import (
	"lxagent/internal/tools"
)

// Modules returns the builtin tool modules in registration order.
func Modules() []tools.Module {
	return []tools.Module{
		FileModule(),
		ShellModule(),
		HTTPModule(),
		SystemModule(),
	}
}

// FileModule groups the filesystem tools.
func FileModule() tools.Module {
	return &tools.StaticModule{
		ModuleName: "file",
		Tags:       []string{"file"},
		ToolList: []tools.Tool{
			NewListDirectoryTool(),
			NewReadFileTool(),
			NewWriteFileTool(),
		},
	}
}

// ShellModule groups the shell and process tools.
func ShellModule() tools.Module {
	return &tools.StaticModule{
		ModuleName: "shell",
		Tags:       []string{"shell", "process"},
		ToolList: []tools.Tool{
			NewExecuteShellTool(),
			NewStartProcessTool(),
		},
	}
}

// HTTPModule groups the network tools.
func HTTPModule() tools.Module {
	return &tools.StaticModule{
		ModuleName: "http",
		Tags:       []string{"browser", "network"},
		ToolList: []tools.Tool{
			NewFetchURLTool(),
		},
	}
}

// SystemModule groups miscellaneous system tools.
func SystemModule() tools.Module {
	return &tools.StaticModule{
		ModuleName: "system",
		Tags:       []string{"system"},
		ToolList: []tools.Tool{
			NewSleepTool(),
		},
	}
}
