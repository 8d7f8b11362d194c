package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/client"
	"github.com/way365/realm-exchange/protocol"
	"github.com/way365/realm-exchange/storage"
	"github.com/way365/realm-exchange/transaction"
	"github.com/way365/realm-exchange/world"
	"go.uber.org/zap"
)

const CONSOLE_HELP = `Commands:
  users                              list the other realm users
  colonists                          list the colonists of this colony
  items                              list the stacks of this colony
  send-colonist USER COLONIST        send a colonist to USER
  send-items USER STACK:COUNT ...    send things from stacks to USER
  pending                            list live transactions and open questions
  accept [TX] / decline [TX]         answer an offer, the oldest when TX is omitted
  prefs on|off on|off                receive colonists, receive items
  salvage [drop TX]                  list or discard salvaged envelopes
  quit                               leave the realm`

// session is the part of the client the console drives.
type session interface {
	Directory() *client.Directory
	Send(receiver protocol.UserID, descriptor protocol.Descriptor, entity transaction.OwnedEntity) (protocol.TransactionID, error)
	SetPreferences(preferences protocol.Preferences) error
	Pending() ([]transaction.Transaction, error)
}

type salvageStore interface {
	ReadAllSalvage() ([]storage.SalvageEntry, error)
	DeleteSalvage(id protocol.TransactionID) error
}

type openChoice struct {
	choice    transaction.Choice
	onAccept  func()
	onDecline func()
}

// Console is the line based front end of a peer. It is the DecisionService
// and the Notifier of the transaction machine.
type Console struct {
	mutex   sync.Mutex
	out     io.Writer
	choices []openChoice

	session session
	colony  *world.Colony
	salvage salvageStore
	logger  *zap.Logger
}

func NewConsole(out io.Writer, colony *world.Colony, salvage salvageStore, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{out: out, colony: colony, salvage: salvage, logger: logger.Named("console")}
}

// Attach binds the console to a session. Commands fail before that.
func (con *Console) Attach(s session) {
	con.mutex.Lock()
	con.session = s
	con.mutex.Unlock()
}

func (con *Console) RequestChoice(choice transaction.Choice, onAccept func(), onDecline func()) {
	con.mutex.Lock()
	con.choices = append(con.choices, openChoice{choice: choice, onAccept: onAccept, onDecline: onDecline})
	con.mutex.Unlock()

	con.printf("\n[offer %v]\n%v\n  accept %v  -> %v\n  decline %v -> %v\n",
		choice.ID, choice.Text, choice.ID, choice.AcceptLabel, choice.ID, choice.DeclineLabel)
}

func (con *Console) Notify(notification transaction.Notification) {
	target := ""
	if notification.Target != nil {
		target = " at " + notification.Target.String()
	}
	con.printf("\n[%v] %v%v\n%v\n", notification.Severity, notification.Title, target, notification.Text)
}

// Run reads commands from in until quit, end of input or ctx is done.
func (con *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	con.printf("%v\n", CONSOLE_HELP)
	for {
		select {
		case line := <-lines:
			quit, err := con.Execute(line)
			if err != nil {
				con.printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
		case err := <-readErr:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

// Execute runs a single command line.
func (con *Console) Execute(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "help", "?":
		con.printf("%v\n", CONSOLE_HELP)
	case "quit", "exit":
		return true, nil
	case "users":
		err = con.listUsers()
	case "colonists":
		con.listColonists()
	case "items":
		con.listStacks()
	case "send-colonist":
		err = con.sendColonist(args)
	case "send-items":
		err = con.sendItems(args)
	case "pending":
		err = con.listPending()
	case "accept":
		err = con.answer(args, true)
	case "decline":
		err = con.answer(args, false)
	case "prefs":
		err = con.setPreferences(args)
	case "salvage":
		err = con.handleSalvage(args)
	default:
		err = errors.Errorf("unknown command %q, try help", command)
	}
	return false, err
}

func (con *Console) attached() (session, error) {
	con.mutex.Lock()
	defer con.mutex.Unlock()
	if con.session == nil {
		return nil, errors.New("not connected to a relay")
	}
	return con.session, nil
}

func (con *Console) listUsers() error {
	s, err := con.attached()
	if err != nil {
		return err
	}
	others := s.Directory().Others()
	if len(others) == 0 {
		con.printf("nobody else is in the realm\n")
		return nil
	}
	for _, user := range others {
		con.printf("%-20v %v colonists:%v items:%v\n",
			user.Name, user.ID, onOff(user.Preferences.ReceiveColonists), onOff(user.Preferences.ReceiveItems))
	}
	return nil
}

func (con *Console) listColonists() {
	for _, pawn := range con.colony.Colonists() {
		status := ""
		if pawn.InTransit() {
			status = " (in transit)"
		}
		con.printf("%-10v %v%v\n", pawn.ID(), pawn.Label(), status)
	}
}

func (con *Console) listStacks() {
	for _, stack := range con.colony.Stacks() {
		thing := stack.Thing()
		con.printf("%-10v %-28v available %d of %d\n", stack.ID(), thing.ThingDef, stack.Available(), thing.StackCount)
	}
}

func (con *Console) receiver(s session, key string) (protocol.User, error) {
	user, ok := s.Directory().Find(key)
	if !ok {
		return protocol.User{}, errors.Errorf("no user %q in the realm", key)
	}
	if user.ID == s.Directory().Self().ID {
		return protocol.User{}, errors.New("cannot send to yourself")
	}
	return user, nil
}

func (con *Console) sendColonist(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: send-colonist USER COLONIST")
	}
	s, err := con.attached()
	if err != nil {
		return err
	}
	receiver, err := con.receiver(s, args[0])
	if err != nil {
		return err
	}

	descriptor, entity, err := con.colony.DescribeColonist(args[1])
	if err != nil {
		return err
	}
	id, err := s.Send(receiver.ID, descriptor, entity)
	if err != nil {
		return err
	}
	con.printf("%v is on the way to %v [%v]\n", descriptor.DisplayName(), receiver.Name, id)
	return nil
}

func (con *Console) sendItems(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: send-items USER STACK:COUNT ...")
	}
	s, err := con.attached()
	if err != nil {
		return err
	}
	receiver, err := con.receiver(s, args[0])
	if err != nil {
		return err
	}

	counts, err := parseCounts(args[1:])
	if err != nil {
		return err
	}
	descriptor, entity, err := con.colony.PackItems(counts)
	if err != nil {
		return err
	}
	id, err := s.Send(receiver.ID, descriptor, entity)
	if err != nil {
		return err
	}
	con.printf("%d things are on the way to %v [%v]\n", descriptor.Count(), receiver.Name, id)
	return nil
}

func parseCounts(args []string) (map[string]int, error) {
	counts := make(map[string]int, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, errors.Errorf("expected STACK:COUNT, got %q", arg)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil || count <= 0 {
			return nil, errors.Errorf("invalid count in %q", arg)
		}
		counts[parts[0]] += count
	}
	return counts, nil
}

func (con *Console) listPending() error {
	s, err := con.attached()
	if err != nil {
		return err
	}
	pending, err := s.Pending()
	if err != nil {
		return err
	}

	con.prune(pending)

	con.mutex.Lock()
	waiting := make(map[protocol.TransactionID]bool, len(con.choices))
	for _, open := range con.choices {
		waiting[open.choice.ID] = true
	}
	con.mutex.Unlock()

	if len(pending) == 0 {
		con.printf("no live transactions\n")
		return nil
	}
	for _, tx := range pending {
		note := ""
		if waiting[tx.ID] {
			note = " awaiting your answer"
		}
		con.printf("%v %v %v with %v [%v]%v\n", tx.ID, tx.Side, tx.Kind.Name(), tx.Counterpart().Name, tx.State, note)
	}
	return nil
}

// prune forgets offers whose transaction is no longer live, e.g. after the
// relay timed it out or the session closed.
func (con *Console) prune(live []transaction.Transaction) {
	ids := make(map[protocol.TransactionID]bool, len(live))
	for _, tx := range live {
		ids[tx.ID] = true
	}

	con.mutex.Lock()
	defer con.mutex.Unlock()

	kept := con.choices[:0]
	for _, open := range con.choices {
		if ids[open.choice.ID] {
			kept = append(kept, open)
		} else {
			con.logger.Debug("offer expired", zap.String("id", string(open.choice.ID)))
		}
	}
	con.choices = kept
}

// take removes the open choice for id, or the oldest one when id is empty.
func (con *Console) take(id string) (openChoice, bool) {
	con.mutex.Lock()
	defer con.mutex.Unlock()

	for i, open := range con.choices {
		if id == "" || string(open.choice.ID) == id {
			con.choices = append(con.choices[:i], con.choices[i+1:]...)
			return open, true
		}
	}
	return openChoice{}, false
}

func (con *Console) answer(args []string, accept bool) error {
	id := ""
	if len(args) > 0 {
		id = args[0]
	}
	if s, err := con.attached(); err == nil {
		if pending, err := s.Pending(); err == nil {
			con.prune(pending)
		}
	}
	open, ok := con.take(id)
	if !ok {
		if id == "" {
			return errors.New("no open offers")
		}
		return errors.Errorf("no open offer %v", id)
	}

	if accept {
		open.onAccept()
		con.printf("accepted %v\n", open.choice.ID)
	} else {
		open.onDecline()
		con.printf("declined %v\n", open.choice.ID)
	}
	return nil
}

func (con *Console) setPreferences(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: prefs on|off on|off")
	}
	colonists, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	items, err := parseOnOff(args[1])
	if err != nil {
		return err
	}
	s, err := con.attached()
	if err != nil {
		return err
	}

	preferences := protocol.Preferences{ReceiveColonists: colonists, ReceiveItems: items}
	if err := s.SetPreferences(preferences); err != nil {
		return err
	}
	con.printf("receive colonists:%v items:%v\n", onOff(colonists), onOff(items))
	return nil
}

func (con *Console) handleSalvage(args []string) error {
	if con.salvage == nil {
		return errors.New("no salvage store")
	}

	if len(args) == 2 && args[0] == "drop" {
		if err := con.salvage.DeleteSalvage(protocol.TransactionID(args[1])); err != nil {
			return err
		}
		con.printf("dropped %v\n", args[1])
		return nil
	}
	if len(args) != 0 {
		return errors.New("usage: salvage [drop TX]")
	}

	entries, err := con.salvage.ReadAllSalvage()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		con.printf("nothing salvaged\n")
		return nil
	}
	for _, entry := range entries {
		con.printf("%v %v from %v: %v\n", entry.ID, entry.Envelope.Kind, entry.Sender.Name, entry.Reason)
	}
	return nil
}

func (con *Console) printf(format string, a ...interface{}) {
	con.mutex.Lock()
	defer con.mutex.Unlock()
	fmt.Fprintf(con.out, format, a...)
}

func parseOnOff(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "yes", "true":
		return true, nil
	case "off", "no", "false":
		return false, nil
	}
	return false, errors.Errorf("expected on or off, got %q", value)
}

func onOff(value bool) string {
	if value {
		return "on"
	}
	return "off"
}
