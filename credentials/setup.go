package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/term"

	"github.com/qa-agent/qa-acceptor/types"
)

// ErrNotConfirmed is returned when the operator declines to save
var ErrNotConfirmed = errors.New("credentials not saved")

// Setup interactively asks the operator for a username and password and
// saves them to store only after an explicit confirmation. The password is
// read without echo when in is a terminal.
func Setup(store *FileStore, in io.Reader, out io.Writer, logger log.Logger) error {
	if logger == nil {
		logger = log.Root()
	}
	logger.Info("Interactive credential setup activated", "file", store.Path())

	reader := bufio.NewReader(in)

	username, err := prompt(reader, out, "Enter username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	password, err := readPassword(reader, in, out, "Enter password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	if username == "" && password == "" {
		return errors.New("username and password cannot both be empty")
	}

	ok, err := confirm(reader, out, "Save these credentials? (y/n): ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !ok {
		logger.Info("Credentials not saved")
		return ErrNotConfirmed
	}

	if err := store.Save(types.Credentials{Username: username, Password: password}); err != nil {
		return err
	}
	logger.Info("Credentials saved", "file", store.Path(), "username", username)
	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readPassword(reader *bufio.Reader, in io.Reader, out io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, label)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}
	return prompt(reader, out, label)
}

func confirm(reader *bufio.Reader, out io.Writer, label string) (bool, error) {
	answer, err := prompt(reader, out, label)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
