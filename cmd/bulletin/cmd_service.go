package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	svc "github.com/kardianos/service"
	"github.com/spf13/cobra"
)

var serviceName string

// program adapts runDaemon to the OS service manager.
type program struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(s svc.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	p.mu.Lock()
	p.cancel, p.done = cancel, done
	p.mu.Unlock()
	go func() { done <- runDaemon(ctx) }()
	return nil
}

func (p *program) Stop(s svc.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	return <-done
}

var serviceCmd = &cobra.Command{
	Use:       "service <install|uninstall|start|stop|restart|status|run>",
	Short:     "Manage the bulletin scheduler as an OS service",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"install", "uninstall", "start", "stop", "restart", "status", "run"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newService()
		if err != nil {
			return err
		}
		switch strings.ToLower(args[0]) {
		case "install":
			err = s.Install()
		case "uninstall":
			err = s.Uninstall()
		case "start":
			err = s.Start()
		case "stop":
			err = s.Stop()
		case "restart":
			err = s.Restart()
		case "status":
			st, serr := s.Status()
			if serr != nil {
				return serr
			}
			fmt.Println(serviceStatusName(st))
			return nil
		case "run":
			return s.Run()
		default:
			return fmt.Errorf("unknown service command: %s", args[0])
		}
		if err != nil {
			return fmt.Errorf("service %s: %w", args[0], err)
		}
		fmt.Printf("service %s: %s done\n", serviceName, args[0])
		return nil
	},
}

func init() {
	serviceCmd.Flags().StringVar(&serviceName, "name", "js8bulletin", "service name")
	rootCmd.AddCommand(serviceCmd)
}

// newService builds the service definition. Paths are made absolute since
// the service manager starts the process elsewhere.
func newService() (svc.Service, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	args := []string{"service", "run", "--name", serviceName}
	if cfgPath != "" {
		args = append(args, "--config", absPath(wd, cfgPath))
	}
	if settingsPath != "" {
		args = append(args, "--settings", absPath(wd, settingsPath))
	}
	cfg := &svc.Config{
		Name:             serviceName,
		DisplayName:      "JS8Call bulletin",
		Description:      "Sends a scheduled bulletin through JS8Call.",
		Arguments:        args,
		WorkingDirectory: wd,
		Option: svc.KeyValue{
			"Restart":   "on-failure",
			"RunAtLoad": true,
			"StartType": "automatic",
		},
	}
	return svc.New(&program{}, cfg)
}

func absPath(wd, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(wd, p)
}

func serviceStatusName(st svc.Status) string {
	switch st {
	case svc.StatusRunning:
		return "running"
	case svc.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
