package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fahmaliyi/credboard/vault"
)

const helpText = `Commands:
  l          list clients            f Q        find clients by name or email
  ac         add client              ec N       edit client N
  dc N       delete client N         s N        show logins of client N
  al N       add login to client N   el N M     edit login M of client N
  sl N M     show login M            cl N M     copy secret of login M
  dl N M     delete login M          lock       lock and unlock again
  reset      wipe the vault          h          help
  q          quit`

// RunCommands runs the REPL until q or end of input.
func RunCommands(ctx context.Context, a *App, con *Console) error {
	con.Println(helpText)

	for {
		line, err := con.ReadLine("\n> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd, args := parts[0], parts[1:]
		switch cmd {
		case "q", "quit", "exit":
			con.Println("Exiting.")
			return nil
		case "h", "help", "?":
			con.Println(helpText)
		case "l":
			handleList(con, a.Catalogue().Clients, a.Catalogue())
		case "f":
			handleList(con, a.Catalogue().Search(strings.Join(args, " ")), a.Catalogue())
		case "ac":
			err = handleAddClient(ctx, a, con)
		case "ec":
			err = withClient(a, args, func(cl *vault.Client) error { return handleEditClient(ctx, a, con, cl) })
		case "dc":
			err = withClient(a, args, func(cl *vault.Client) error { return handleDeleteClient(ctx, a, con, cl) })
		case "s":
			err = withClient(a, args, func(cl *vault.Client) error { handleShowClient(con, cl); return nil })
		case "al":
			err = withClient(a, args, func(cl *vault.Client) error { return handleAddLogin(ctx, a, con, cl) })
		case "el":
			err = withLogin(a, args, func(cl *vault.Client, l *vault.Login) error {
				return handleEditLogin(ctx, a, con, cl, l)
			})
		case "sl":
			err = withLogin(a, args, func(cl *vault.Client, l *vault.Login) error { handleShowLogin(con, l); return nil })
		case "cl":
			err = withLogin(a, args, func(cl *vault.Client, l *vault.Login) error { return handleCopy(a, con, l) })
		case "dl":
			err = withLogin(a, args, func(cl *vault.Client, l *vault.Login) error {
				return handleDeleteLogin(ctx, a, con, cl, l)
			})
		case "lock":
			if err := handleLock(ctx, a, con); err != nil {
				return err
			}
		case "reset":
			if err := handleReset(ctx, a, con); err != nil {
				return err
			}
		default:
			con.Println("Unknown command. Type h for help.")
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, ErrInterrupted) {
			con.Println("Cancelled.")
		} else if err != nil {
			con.Println(userMessage(err))
		}
	}
}

// --- argument helpers ---

var errUsage = fmt.Errorf("%w: missing or invalid item number", vault.ErrValidation)

func index(args []string, pos int, n int) (int, error) {
	if len(args) <= pos {
		return 0, errUsage
	}
	i, err := strconv.Atoi(args[pos])
	if err != nil || i < 1 || i > n {
		return 0, errUsage
	}
	return i - 1, nil
}

// withClient resolves the 1-based client number in args[0] against the
// order shown by l.
func withClient(a *App, args []string, fn func(cl *vault.Client) error) error {
	clients := a.Catalogue().Clients
	i, err := index(args, 0, len(clients))
	if err != nil {
		return err
	}
	return fn(&clients[i])
}

func withLogin(a *App, args []string, fn func(cl *vault.Client, l *vault.Login) error) error {
	return withClient(a, args, func(cl *vault.Client) error {
		j, err := index(args, 1, len(cl.Logins))
		if err != nil {
			return err
		}
		return fn(cl, &cl.Logins[j])
	})
}

// --- individual command handlers ---

func handleList(con *Console, clients []vault.Client, all *vault.Catalogue) {
	if len(clients) == 0 {
		con.Println("No clients.")
		return
	}
	for _, cl := range clients {
		num := 0
		for i := range all.Clients {
			if all.Clients[i].ID == cl.ID {
				num = i + 1
				break
			}
		}
		email := ""
		if cl.Email != "" {
			email = " <" + cl.Email + ">"
		}
		con.Printf("%d) %s%s | %d login(s)\n", num, cl.DisplayName, email, len(cl.Logins))
	}
}

func handleAddClient(ctx context.Context, a *App, con *Console) error {
	name, err := con.ReadLine("Name: ")
	if err != nil {
		return err
	}
	email, err := con.ReadLine("Email (optional): ")
	if err != nil {
		return err
	}
	if _, err := a.AddClient(ctx, name, email); err != nil {
		return err
	}
	con.Println("Client added!")
	return nil
}

// handleEditClient keeps a field when the answer is empty; "-" clears the
// email.
func handleEditClient(ctx context.Context, a *App, con *Console, cl *vault.Client) error {
	name, err := con.ReadLine(fmt.Sprintf("Name [%s]: ", cl.DisplayName))
	if err != nil {
		return err
	}
	if name == "" {
		name = cl.DisplayName
	}
	email, err := con.ReadLine(fmt.Sprintf("Email [%s] (- to clear): ", cl.Email))
	if err != nil {
		return err
	}
	switch email {
	case "":
		email = cl.Email
	case "-":
		email = ""
	}
	if err := a.UpdateClient(ctx, cl.ID, name, email); err != nil {
		return err
	}
	con.Println("Client updated!")
	return nil
}

func handleDeleteClient(ctx context.Context, a *App, con *Console, cl *vault.Client) error {
	ok, err := con.Confirm(fmt.Sprintf("Delete %s and its %d login(s)?", cl.DisplayName, len(cl.Logins)))
	if err != nil || !ok {
		return err
	}
	if err := a.DeleteClient(ctx, cl.ID); err != nil {
		return err
	}
	con.Println("Client deleted!")
	return nil
}

func handleShowClient(con *Console, cl *vault.Client) {
	con.Printf("%s\n", cl.DisplayName)
	if cl.Email != "" {
		con.Printf("Email: %s\n", cl.Email)
	}
	if len(cl.Logins) == 0 {
		con.Println("No logins.")
		return
	}
	for i, l := range cl.Logins {
		con.Printf("  %d) %s @ %s | Secret: ********\n", i+1, l.Username, l.Service)
	}
}

func handleAddLogin(ctx context.Context, a *App, con *Console, cl *vault.Client) error {
	username, err := con.ReadLine("Username: ")
	if err != nil {
		return err
	}
	secret, err := con.ReadSecret("Secret: ")
	if err != nil {
		return err
	}
	defer vault.Zero(secret)
	service, err := con.ReadLine("Service: ")
	if err != nil {
		return err
	}
	notes, err := con.ReadLine("Notes (optional): ")
	if err != nil {
		return err
	}
	if _, err := a.AddLogin(ctx, cl.ID, username, string(secret), service, notes); err != nil {
		return err
	}
	con.Println("Login added!")
	return nil
}

// handleEditLogin keeps a field when the answer is empty; "-" clears the
// notes.
func handleEditLogin(ctx context.Context, a *App, con *Console, cl *vault.Client, l *vault.Login) error {
	username, err := con.ReadLine(fmt.Sprintf("Username [%s]: ", l.Username))
	if err != nil {
		return err
	}
	secret, err := con.ReadSecret("Secret [unchanged]: ")
	if err != nil {
		return err
	}
	defer vault.Zero(secret)
	service, err := con.ReadLine(fmt.Sprintf("Service [%s]: ", l.Service))
	if err != nil {
		return err
	}
	notes, err := con.ReadLine(fmt.Sprintf("Notes [%s] (- to clear): ", l.Notes))
	if err != nil {
		return err
	}

	if username == "" {
		username = l.Username
	}
	newSecret := l.Secret
	if len(secret) > 0 {
		newSecret = string(secret)
	}
	if service == "" {
		service = l.Service
	}
	switch notes {
	case "":
		notes = l.Notes
	case "-":
		notes = ""
	}
	if err := a.UpdateLogin(ctx, cl.ID, l.ID, username, newSecret, service, notes); err != nil {
		return err
	}
	con.Println("Login updated!")
	return nil
}

func handleShowLogin(con *Console, l *vault.Login) {
	con.Printf("Username: %s\nSecret: %s\nService: %s\n", l.Username, l.Secret, l.Service)
	if l.Notes != "" {
		con.Printf("Notes: %s\n", l.Notes)
	}
	con.Printf("Created: %s\n", l.CreatedAt.Local().Format("2006-01-02 15:04"))
}

func handleCopy(a *App, con *Console, l *vault.Login) error {
	if err := a.CopySecret(l.Secret); err != nil {
		return err
	}
	if a.clipTimeout > 0 {
		con.Printf("Secret copied to clipboard. Clearing in %s...\n", a.clipTimeout)
	} else {
		con.Println("Secret copied to clipboard.")
	}
	return nil
}

func handleDeleteLogin(ctx context.Context, a *App, con *Console, cl *vault.Client, l *vault.Login) error {
	ok, err := con.Confirm(fmt.Sprintf("Delete login %s @ %s?", l.Username, l.Service))
	if err != nil || !ok {
		return err
	}
	if err := a.DeleteLogin(ctx, cl.ID, l.ID); err != nil {
		return err
	}
	con.Println("Login deleted!")
	return nil
}

func handleLock(ctx context.Context, a *App, con *Console) error {
	a.Lock()
	con.Println("Vault locked.")
	if err := Login(ctx, a.Session(), con); err != nil {
		return err
	}
	return a.Load(ctx)
}

// handleReset wipes the vault after an explicit confirmation and walks the
// user through setting up a new master password.
func handleReset(ctx context.Context, a *App, con *Console) error {
	con.Println("This permanently deletes the master password, the session key and every stored credential.")
	ans, err := con.ReadLine("Type RESET to continue: ")
	if err != nil {
		return err
	}
	if ans != "RESET" {
		con.Println("Reset cancelled.")
		return nil
	}
	if err := a.Reset(ctx); err != nil {
		return err
	}
	con.Println("Vault wiped.")
	if err := SetupMasterPassword(ctx, a.Session(), con); err != nil {
		return err
	}
	return a.Load(ctx)
}
