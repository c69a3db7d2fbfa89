package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"ain_oman_legal/models"

	"github.com/google/uuid"
)

var (
	ErrContactNotFound     = errors.New("contact not found")
	ErrInvalidContactKind  = errors.New("invalid contact kind")
	ErrContactNameRequired = errors.New("contact name is required")
)

// ContactInput holds the editable directory fields
type ContactInput struct {
	Kind         string
	Name         string
	Email        string
	Phone        string
	Organization string
	Specialty    string
}

// ContactService manages the tenant's legal directory
type ContactService struct {
	store *RecordStore
}

func NewContactService(store *RecordStore) *ContactService {
	return &ContactService{store: store}
}

func isValidContactKind(kind string) bool {
	switch kind {
	case models.ContactKindLawyer, models.ContactKindClient, models.ContactKindCourt,
		models.ContactKindInstitution, models.ContactKindDepartment:
		return true
	}
	return false
}

func normalizeContact(in ContactInput) (ContactInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Organization = strings.TrimSpace(in.Organization)
	in.Specialty = strings.TrimSpace(in.Specialty)
	if in.Kind == "" {
		in.Kind = models.ContactKindLawyer
	}
	if !isValidContactKind(in.Kind) {
		return in, fmt.Errorf("%w: %s", ErrInvalidContactKind, in.Kind)
	}
	if in.Name == "" {
		return in, ErrContactNameRequired
	}
	return in, nil
}

// Add creates a directory entry. An empty id gets a fresh uuid.
func (s *ContactService) Add(ctx context.Context, ac AuditContext, id string, in ContactInput) (*models.Contact, error) {
	in, err := normalizeContact(in)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.New().String()
	}

	var contact models.Contact
	err = s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		if _, err := snap.Contact(id); err == nil {
			return fmt.Errorf("contact %s already exists", id)
		}
		now := s.store.Now()
		contact = models.Contact{
			ID:           id,
			TenantID:     ac.TenantID,
			CreatedAt:    now,
			UpdatedAt:    now,
			Kind:         in.Kind,
			Name:         in.Name,
			Email:        in.Email,
			Phone:        in.Phone,
			Organization: in.Organization,
			Specialty:    in.Specialty,
			Active:       true,
		}
		snap.AddContact(contact)
		return s.store.LogAuditEvent(snap, ac, models.AuditActionCreate, models.EntityKindContact, contact.ID, contact.Name,
			"Contact added to directory", nil, contact)
	})
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// Update replaces the editable fields and the active flag of a contact
func (s *ContactService) Update(ctx context.Context, ac AuditContext, id string, in ContactInput, active bool) (*models.Contact, error) {
	in, err := normalizeContact(in)
	if err != nil {
		return nil, err
	}

	var result models.Contact
	err = s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		c, err := snap.Contact(id)
		if err != nil {
			return err
		}
		before := *c
		c.Kind = in.Kind
		c.Name = in.Name
		c.Email = in.Email
		c.Phone = in.Phone
		c.Organization = in.Organization
		c.Specialty = in.Specialty
		c.Active = active
		c.UpdatedAt = s.store.Now()
		result = *c
		return s.store.LogAuditEvent(snap, ac, models.AuditActionUpdate, models.EntityKindContact, c.ID, c.Name,
			"Contact updated", before, result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a contact
func (s *ContactService) Delete(ctx context.Context, ac AuditContext, id string) (*models.Contact, error) {
	var removed models.Contact
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		c, err := snap.DeleteContact(id)
		if err != nil {
			return err
		}
		removed = c
		return s.store.LogAuditEvent(snap, ac, models.AuditActionDelete, models.EntityKindContact, c.ID, c.Name,
			"Contact removed from directory", c, nil)
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// Get returns one contact
func (s *ContactService) Get(ctx context.Context, tenantID, id string) (*models.Contact, error) {
	var result models.Contact
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		c, err := snap.Contact(id)
		if err != nil {
			return err
		}
		result = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns contacts sorted by name, optionally restricted to one kind
func (s *ContactService) List(ctx context.Context, tenantID, kind string) ([]models.Contact, error) {
	var out []models.Contact
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		out = selectWhere(snap.Contacts, func(c *models.Contact) bool {
			return kind == "" || c.Kind == kind
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
