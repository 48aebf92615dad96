package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/spf13/pflag"

	"voxweb/internal/ipc"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: voxweb-ctl [--socket path] <say TEXT...|audio FILE|stop>")
	cli.PrintDefaults()
}

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	cli.Usage = usage
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	msg := ipc.ControlMessage{Cmd: args[0]}
	switch msg.Cmd {
	case ipc.CmdSay:
		msg.Text = strings.Join(args[1:], " ")
		if msg.Text == "" {
			usage()
			os.Exit(2)
		}
	case ipc.CmdAudio:
		if len(args) != 2 {
			usage()
			os.Exit(2)
		}
		// the daemon may run in another directory
		abs, err := filepath.Abs(args[1])
		if err != nil {
			fmt.Println("bad path:", err)
			os.Exit(1)
		}
		msg.Text = abs
	case ipc.CmdStop:
	default:
		usage()
		os.Exit(2)
	}

	if err := ipc.SendCommand(*socket, msg); err != nil {
		fmt.Println("voxweb-daemon not running:", err)
		os.Exit(1)
	}
}
