package world

import "github.com/way365/realm-exchange/protocol"

func starterColonists() []*protocol.ColonistDescriptor {
	return []*protocol.ColonistDescriptor{
		{
			FirstName:     "Mara",
			NickName:      "Doc",
			LastName:      "Velasquez",
			KindDef:       "Colonist",
			Gender:        protocol.GENDER_FEMALE,
			BiologicalAge: 34,
			ChronoAge:     34,
			Childhood:     "Medical student",
			Adulthood:     "Field medic",
			Skills: []protocol.Skill{
				{Name: "Medicine", Level: 11, Passion: protocol.PASSION_MAJOR},
				{Name: "Intellectual", Level: 7, Passion: protocol.PASSION_MINOR},
				{Name: "Shooting", Level: 3},
			},
			Traits:    []protocol.Trait{{Name: "Kind"}},
			Equipment: []protocol.ThingDescriptor{{ThingDef: "Apparel_Parka", StuffDef: "Cloth", Quality: 2, HitPoints: 80, StackCount: 1}},
		},
		{
			FirstName:     "Tomas",
			LastName:      "Okafor",
			KindDef:       "Colonist",
			Gender:        protocol.GENDER_MALE,
			BiologicalAge: 41,
			ChronoAge:     156,
			Childhood:     "Vatgrown soldier",
			Adulthood:     "Mercenary",
			Skills: []protocol.Skill{
				{Name: "Shooting", Level: 12, Passion: protocol.PASSION_MAJOR},
				{Name: "Melee", Level: 8},
				{Name: "Construction", Level: 4},
			},
			Traits:    []protocol.Trait{{Name: "Tough"}, {Name: "Industriousness", Degree: 1}},
			Equipment: []protocol.ThingDescriptor{{ThingDef: "Gun_AssaultRifle", Quality: 3, HitPoints: 100, StackCount: 1}},
		},
		{
			FirstName:     "Ines",
			LastName:      "Halloran",
			KindDef:       "Colonist",
			Gender:        protocol.GENDER_FEMALE,
			BiologicalAge: 27,
			ChronoAge:     27,
			Childhood:     "Farm kid",
			Adulthood:     "Architect",
			Skills: []protocol.Skill{
				{Name: "Construction", Level: 10, Passion: protocol.PASSION_MAJOR},
				{Name: "Plants", Level: 9, Passion: protocol.PASSION_MINOR},
				{Name: "Cooking", Level: 5},
			},
		},
	}
}

func starterThings() []protocol.ThingDescriptor {
	return []protocol.ThingDescriptor{
		{ThingDef: "Steel", HitPoints: 100, StackCount: 450},
		{ThingDef: "WoodLog", HitPoints: 100, StackCount: 300},
		{ThingDef: "MealSimple", HitPoints: 50, StackCount: 30},
		{ThingDef: "MedicineIndustrial", HitPoints: 60, StackCount: 12},
		{ThingDef: "Silver", HitPoints: 100, StackCount: 800},
		{ThingDef: "ComponentIndustrial", HitPoints: 70, StackCount: 20},
	}
}
