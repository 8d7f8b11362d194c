package protocol

import (
	"encoding/gob"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	MAX_SKILL_LEVEL     = 20
	MAX_AGE_YEARS       = 1000
	MAX_THINGS_PER_DROP = 64
	MAX_STACK_COUNT     = 10000
)

var ErrMalformedDescriptor = errors.New("malformed descriptor")

// Descriptor is the portable, wire-safe description of an entity. It is
// immutable once built and is the only part of a transaction that travels.
type Descriptor interface {
	Kind() Kind
	Validate() error
	String() string
}

func init() {
	gob.Register(&ColonistDescriptor{})
	gob.Register(&ItemsDescriptor{})
}

type Gender uint8

const (
	GENDER_NONE Gender = iota
	GENDER_MALE
	GENDER_FEMALE
)

type Passion uint8

const (
	PASSION_NONE Passion = iota
	PASSION_MINOR
	PASSION_MAJOR
)

type Skill struct {
	Name    string
	Level   int
	Passion Passion
}

type Trait struct {
	Name   string
	Degree int
}

// ColonistDescriptor describes a pawn well enough to rebuild it on the other side.
type ColonistDescriptor struct {
	FirstName     string
	NickName      string
	LastName      string
	KindDef       string
	Gender        Gender
	BiologicalAge int
	ChronoAge     int
	Childhood     string
	Adulthood     string
	Skills        []Skill
	Traits        []Trait
	Equipment     []ThingDescriptor
}

func (*ColonistDescriptor) Kind() Kind { return KIND_COLONIST }

func (colonist *ColonistDescriptor) DisplayName() string {
	if colonist.NickName != "" {
		return colonist.NickName
	}
	return strings.TrimSpace(colonist.FirstName + " " + colonist.LastName)
}

func (colonist *ColonistDescriptor) Validate() error {
	if colonist == nil {
		return errors.Wrap(ErrMalformedDescriptor, "colonist descriptor is nil")
	}
	if colonist.DisplayName() == "" {
		return errors.Wrap(ErrMalformedDescriptor, "colonist has no name")
	}
	if colonist.KindDef == "" {
		return errors.Wrap(ErrMalformedDescriptor, "colonist has no kind def")
	}
	if colonist.BiologicalAge < 0 || colonist.BiologicalAge > MAX_AGE_YEARS {
		return errors.Wrapf(ErrMalformedDescriptor, "biological age %d out of range", colonist.BiologicalAge)
	}
	if colonist.ChronoAge < colonist.BiologicalAge {
		return errors.Wrapf(ErrMalformedDescriptor, "chronological age %d below biological age %d", colonist.ChronoAge, colonist.BiologicalAge)
	}
	for _, skill := range colonist.Skills {
		if skill.Name == "" || skill.Level < 0 || skill.Level > MAX_SKILL_LEVEL {
			return errors.Wrapf(ErrMalformedDescriptor, "invalid skill %q level %d", skill.Name, skill.Level)
		}
	}
	for _, thing := range colonist.Equipment {
		if err := thing.Validate(); err != nil {
			return errors.Wrap(err, "equipment")
		}
	}
	return nil
}

func (colonist *ColonistDescriptor) String() string {
	return fmt.Sprintf(
		"Colonist: %v\n"+
			"KindDef: %v\n"+
			"Age: %v (%v)\n"+
			"Skills: %v\n"+
			"Traits: %v\n"+
			"Equipment: %v",
		colonist.DisplayName(),
		colonist.KindDef,
		colonist.BiologicalAge,
		colonist.ChronoAge,
		len(colonist.Skills),
		len(colonist.Traits),
		len(colonist.Equipment),
	)
}

type ThingDescriptor struct {
	ThingDef   string
	StuffDef   string
	Quality    int
	HitPoints  int
	StackCount int
}

func (thing ThingDescriptor) Validate() error {
	if thing.ThingDef == "" {
		return errors.Wrap(ErrMalformedDescriptor, "thing has no def")
	}
	if thing.StackCount <= 0 || thing.StackCount > MAX_STACK_COUNT {
		return errors.Wrapf(ErrMalformedDescriptor, "thing %v has stack count %d", thing.ThingDef, thing.StackCount)
	}
	if thing.HitPoints < 0 {
		return errors.Wrapf(ErrMalformedDescriptor, "thing %v has negative hit points", thing.ThingDef)
	}
	return nil
}

func (thing ThingDescriptor) String() string {
	if thing.StuffDef != "" {
		return fmt.Sprintf("%v x%d (%v)", thing.ThingDef, thing.StackCount, thing.StuffDef)
	}
	return fmt.Sprintf("%v x%d", thing.ThingDef, thing.StackCount)
}

// ItemsDescriptor is a bundle of things dropped together.
type ItemsDescriptor struct {
	Things []ThingDescriptor
}

func (*ItemsDescriptor) Kind() Kind { return KIND_ITEMS }

func (items *ItemsDescriptor) Validate() error {
	if items == nil || len(items.Things) == 0 {
		return errors.Wrap(ErrMalformedDescriptor, "no things to send")
	}
	if len(items.Things) > MAX_THINGS_PER_DROP {
		return errors.Wrapf(ErrMalformedDescriptor, "%d things exceed drop limit", len(items.Things))
	}
	for _, thing := range items.Things {
		if err := thing.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (items *ItemsDescriptor) Count() (count int) {
	for _, thing := range items.Things {
		count += thing.StackCount
	}
	return count
}

func (items *ItemsDescriptor) String() string {
	parts := make([]string, 0, len(items.Things))
	for _, thing := range items.Things {
		parts = append(parts, thing.String())
	}
	return "Items: " + strings.Join(parts, ", ")
}
