package identity

import (
	"bufio"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
)

// ExtractIdentityFromFile loads a peer identity, creating the file with a fresh
// id if it does not exist. The file holds the id on the first line and the
// display name on the second.
func ExtractIdentityFromFile(filename string, name string) (user protocol.User, err error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		if err = createIdentityFile(filename, name); err != nil {
			return user, err
		}
	}

	filehandle, err := os.Open(filename)
	if err != nil {
		return user, errors.Wrap(err, "open identity file")
	}
	defer filehandle.Close()

	user, err = readIdentity(bufio.NewReader(filehandle))
	if err != nil {
		return user, errors.Wrapf(err, "identity file %v", filename)
	}

	return user, VerifyIdentity(user)
}

func readIdentity(reader *bufio.Reader) (user protocol.User, err error) {
	id, err := reader.ReadString('\n')
	if err != nil {
		return user, errors.Wrap(err, "could not read id")
	}
	name, err := reader.ReadString('\n')
	if err != nil {
		return user, errors.Wrap(err, "could not read name")
	}

	user.ID = protocol.UserID(strings.TrimSpace(id))
	user.Name = strings.TrimSpace(name)
	user.Preferences = protocol.DefaultPreferences()

	return user, nil
}

func VerifyIdentity(user protocol.User) error {
	if _, err := uuid.Parse(string(user.ID)); err != nil {
		return errors.Wrapf(err, "the identity id %q is not a valid uuid", user.ID)
	}
	if user.Name == "" {
		return errors.New("the identity has no display name")
	}
	return nil
}

func createIdentityFile(filename string, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("a display name is required to create an identity")
	}

	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return errors.Wrap(err, "create identity file")
	}
	defer file.Close()

	if _, err := file.WriteString(string(protocol.NewUserID()) + "\n" + name + "\n"); err != nil {
		return errors.Wrap(err, "failed to write identity to file")
	}

	return nil
}
