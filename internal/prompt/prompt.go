// Package prompt asks the user for their handins login.
package prompt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"handins-grader/internal/handins"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	ErrNoUsername = errors.New("no username provided")
	ErrNoPassword = errors.New("no password provided")
)

// Credentials reads a username and a password from `in`. When `in` is a
// terminal the password is read without echo, otherwise it is read as a plain
// line so the prompt can be scripted and tested.
func Credentials(in io.Reader, out io.Writer) (handins.Credentials, error) {
	reader := bufio.NewReader(in)

	fmt.Fprint(out, "username: ")
	username, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && username != "") {
		fmt.Fprintln(out)
		if errors.Is(err, io.EOF) {
			return handins.Credentials{}, ErrNoUsername
		}
		return handins.Credentials{}, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return handins.Credentials{}, ErrNoUsername
	}

	fmt.Fprint(out, "password: ")
	password, err := readPassword(in, reader)
	fmt.Fprintln(out)
	if err != nil {
		return handins.Credentials{}, err
	}
	if len(password) == 0 {
		return handins.Credentials{}, ErrNoPassword
	}

	return handins.Credentials{
		Username: username,
		Password: password,
	}, nil
}

func readPassword(in io.Reader, buffered *bufio.Reader) ([]byte, error) {
	file, ok := in.(*os.File)
	if ok && term.IsTerminal(int(file.Fd())) {
		return term.ReadPassword(int(file.Fd()))
	}

	line, err := buffered.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}
