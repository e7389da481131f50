package library

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AddMember registers a member with the given role. The password is stored
// as a bcrypt hash.
func (d *Database) AddMember(name, email, password, role string) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return 0, fmt.Errorf("email must not be empty")
	}
	if password == "" {
		return 0, fmt.Errorf("password must not be empty")
	}
	if role == "" {
		role = RoleMember
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	res, err := d.addMemberStmt.Exec(name, email, string(hash), role)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", email, ErrEmailTaken)
		}
		return 0, fmt.Errorf("add member: %w", err)
	}
	return res.LastInsertId()
}

const memberColumns = `id,name,email,role,password_hash`

func scanMember(row interface{ Scan(...any) error }) (*Member, error) {
	var m Member
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Role, &m.PasswordHash); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMember fetches a single member.
func (d *Database) GetMember(id int64) (*Member, error) {
	m, err := scanMember(d.db.QueryRow(`SELECT `+memberColumns+` FROM members WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %d: %w", id, ErrMemberNotFound)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetMemberByEmail fetches a member by email address.
func (d *Database) GetMemberByEmail(email string) (*Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m, err := scanMember(d.db.QueryRow(`SELECT `+memberColumns+` FROM members WHERE email=?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", email, ErrMemberNotFound)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetAllMembers returns all members.
func (d *Database) GetAllMembers() ([]*Member, error) {
	rows, err := d.db.Query(`SELECT ` + memberColumns + ` FROM members ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpdateMember changes a member's name and, when non-empty, their role.
func (d *Database) UpdateMember(id int64, name, role string) (*Member, error) {
	var updated *Member
	err := d.inTx(func(tx *sql.Tx) error {
		m, err := scanMember(tx.QueryRow(`SELECT `+memberColumns+` FROM members WHERE id=?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("member %d: %w", id, ErrMemberNotFound)
		}
		if err != nil {
			return err
		}

		m.Name = name
		if role != "" {
			m.Role = role
		}
		if _, err := tx.Exec(`UPDATE members SET name=?, role=? WHERE id=?`, m.Name, m.Role, id); err != nil {
			return fmt.Errorf("update member: %w", err)
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AuthenticateMember verifies the password for the given email. Unknown
// email and wrong password both report ErrInvalidCredentials.
func (d *Database) AuthenticateMember(email, password string) (*Member, error) {
	m, err := d.GetMemberByEmail(email)
	if errors.Is(err, ErrMemberNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return m, nil
}

// EnsureAdmin creates the admin account on first start and is a no-op once
// it exists.
func (d *Database) EnsureAdmin(name, email, password string) error {
	_, err := d.GetMemberByEmail(email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrMemberNotFound) {
		return err
	}

	id, err := d.AddMember(name, email, password, RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	slog.Info("admin account created", "email", email, "member_id", id)
	return nil
}
