// SPDX-License-Identifier: BSD-3-Clause

package bmcworker

// shellInvocation maps a (protocol, command) pair to a concrete CLI tool
// invocation (§4.5: "protocol and command are mapped to a concrete shell
// invocation that writes its output to a per-command temp file"). The
// caller is responsible for directing the process's stdout to the output
// file — these argument lists carry no shell redirection syntax since the
// command runs via exec.CommandContext, not a shell.
func shellInvocation(extra ExtraInfo, cmd Command, passwordFile string) (tool string, args []string) {
	switch extra.Type {
	case ProtocolRedfish:
		return "redfishtool", redfishArgs(extra, cmd, passwordFile)
	default:
		return "ipmitool", ipmitoolArgs(extra, cmd, passwordFile)
	}
}

func ipmitoolArgs(extra ExtraInfo, cmd Command, passwordFile string) []string {
	base := []string{
		"-I", "lanplus",
		"-H", extra.IP,
		"-U", extra.Username,
		"-f", passwordFile,
	}

	var sub []string
	switch cmd {
	case BMCQuery, BMCInfo:
		sub = []string{"mc", "info"}
	case PowerOn:
		sub = []string{"chassis", "power", "on"}
	case PowerOff:
		sub = []string{"chassis", "power", "off"}
	case PowerReset:
		sub = []string{"chassis", "power", "reset"}
	case PowerCycle:
		sub = []string{"chassis", "power", "cycle"}
	case PowerStatus:
		sub = []string{"chassis", "power", "status"}
	case RestartCause:
		sub = []string{"chassis", "restart_cause"}
	case BootdevPXE:
		sub = []string{"chassis", "bootdev", "pxe"}
	}

	return append(base, sub...)
}

func redfishArgs(extra ExtraInfo, cmd Command, passwordFile string) []string {
	base := []string{
		"-r", extra.IP,
		"-u", extra.Username,
		"-P", passwordFile,
	}

	var sub []string
	switch cmd {
	case BMCQuery, BMCInfo:
		sub = []string{"-c", "Systems", "list"}
	case PowerOn:
		sub = []string{"-c", "Systems", "set", "--Attr", "Power=On"}
	case PowerOff:
		sub = []string{"-c", "Systems", "set", "--Attr", "Power=Off"}
	case PowerReset:
		sub = []string{"-c", "Systems", "reset", "--Attr", "ResetType=GracefulRestart"}
	case PowerCycle:
		sub = []string{"-c", "Systems", "reset", "--Attr", "ResetType=PowerCycle"}
	case PowerStatus:
		sub = []string{"-c", "Systems", "get", "--Attr", "PowerState"}
	case RestartCause:
		sub = []string{"-c", "Systems", "get", "--Attr", "LastResetReason"}
	case BootdevPXE:
		sub = []string{"-c", "Systems", "set", "--Attr", "Boot.BootSourceOverrideTarget=Pxe"}
	}

	return append(base, sub...)
}
