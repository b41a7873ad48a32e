package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"zadapt/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage zadapt configuration",
}

var configSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create or update a profile",
	Long:  `Interactive setup that adds or replaces a profile in the configuration file.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigSetup,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetupCmd)
}

func runConfigSetup(cmd *cobra.Command, args []string) error {
	fd := int(os.Stdin.Fd())
	q := &questioner{in: bufio.NewReader(os.Stdin), out: os.Stdout, fd: fd, terminal: term.IsTerminal(fd)}

	fmt.Println("zadapt Configuration Setup")
	fmt.Println("==========================")
	fmt.Println()

	name, profile, err := askProfile(q)
	if err != nil {
		return err
	}

	existing, err := config.Load(cfgFile)
	if err != nil {
		existing = &config.Config{}
	}
	if existing.Profiles == nil {
		existing.Profiles = make(map[string]*config.Profile)
	}
	existing.Profiles[name] = profile

	if existing.DefaultProfile == "" || q.yes(fmt.Sprintf("Set '%s' as default profile?", name), true) {
		existing.DefaultProfile = name
	}

	if err := existing.Save(cfgFile); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	path, _ := config.Path(cfgFile)
	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Printf("Config file: %s\n", path)
	fmt.Printf("Default profile: %s\n", existing.DefaultProfile)
	return nil
}

// askProfile collects one profile and validates it.
func askProfile(q *questioner) (string, *config.Profile, error) {
	name := q.ask("Profile name", "default")

	p := &config.Profile{Timeout: config.DefaultTimeout}
	p.Host = q.ask("Mainframe host", "")
	p.Protocol = q.ask("Protocol (zosmf/ftp)", config.DefaultProtocol)

	portStr := q.ask("Port", strconv.Itoa(config.DefaultPort(p.Protocol)))
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", nil, fmt.Errorf("invalid port: %s", portStr)
	}
	p.Port = port

	p.User = q.ask("Username", "")
	password, err := q.password("Password")
	if err != nil {
		return "", nil, err
	}
	p.Password = password
	p.USSHome = q.ask("USS Home directory", "/u/"+strings.ToLower(p.User))

	if p.Protocol == config.ProtocolZOSMF {
		p.InsecureTLS = q.yes("Skip TLS certificate verification?", false)
	}

	if err := p.Validate(); err != nil {
		return "", nil, err
	}
	return name, p, nil
}

// questioner reads answers line by line. When terminal is set, fd is the
// terminal passwords are read from without echo.
type questioner struct {
	in       *bufio.Reader
	out      io.Writer
	fd       int
	terminal bool
}

func (q *questioner) ask(label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(q.out, "%s [%s]: ", label, defaultVal)
	} else {
		fmt.Fprintf(q.out, "%s: ", label)
	}

	input, _ := q.in.ReadString('\n')
	if input = strings.TrimSpace(input); input == "" {
		return defaultVal
	}
	return input
}

func (q *questioner) yes(label string, defaultYes bool) bool {
	def := "n"
	if defaultYes {
		def = "y"
	}
	return strings.EqualFold(q.ask(label+" (y/n)", def), "y")
}

func (q *questioner) password(label string) (string, error) {
	if !q.terminal {
		return q.ask(label, ""), nil
	}

	fmt.Fprintf(q.out, "%s: ", label)
	b, err := term.ReadPassword(q.fd)
	fmt.Fprintln(q.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
