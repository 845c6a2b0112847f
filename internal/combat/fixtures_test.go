package combat

var (
	marineData = &TypeData{
		Type:        Marine,
		Name:        "Marine",
		MineralCost: 50,
		Attributes:  []Attribute{Light, Biological},
		Weapons:     []Weapon{{Type: TargetAny, Damage: 6, Attacks: 1, Range: 5, Speed: 0.86083984}},
	}
	zerglingData = &TypeData{
		Type:        Zergling,
		Name:        "Zergling",
		MineralCost: 25,
		Attributes:  []Attribute{Light, Biological},
		Weapons:     []Weapon{{Type: TargetGround, Damage: 5, Attacks: 1, Range: 0.100097656, Speed: 0.6960449}},
	}
	zealotData = &TypeData{
		Type:        Zealot,
		Name:        "Zealot",
		MineralCost: 100,
		Attributes:  []Attribute{Light, Biological},
		Weapons:     []Weapon{{Type: TargetGround, Damage: 8, Attacks: 2, Range: 0.1, Speed: 0.857}},
	}
	battlecruiserData = &TypeData{
		Type:        Battlecruiser,
		Name:        "Battlecruiser",
		MineralCost: 400,
		VespeneCost: 300,
		Attributes:  []Attribute{Armored, Mechanical, Massive},
		Weapons: []Weapon{
			{Type: TargetAir, Damage: 5, Attacks: 1, Range: 6, Speed: 0.16 * 1.4},
			{Type: TargetGround, Damage: 8, Attacks: 1, Range: 6, Speed: 0.16 * 1.4},
		},
	}
	medivacData = &TypeData{
		Type:        Medivac,
		Name:        "Medivac",
		MineralCost: 100,
		VespeneCost: 100,
		Attributes:  []Attribute{Armored, Mechanical},
	}
)

func marine(owner int) Unit {
	return Unit{
		Owner: owner, Type: Marine, Data: marineData,
		Health: 45, HealthMax: 45,
		Radius: 0.375, Speed: 2.25,
	}
}

func zergling(owner int) Unit {
	return Unit{
		Owner: owner, Type: Zergling, Data: zerglingData,
		Health: 35, HealthMax: 35,
		Radius: 0.375, Speed: 2.953125,
	}
}

func zealot(owner int) Unit {
	return Unit{
		Owner: owner, Type: Zealot, Data: zealotData,
		Health: 100, HealthMax: 100, Shield: 50, ShieldMax: 50,
		Armor: 1, Radius: 0.5, Speed: 2.25,
	}
}

func battlecruiser(owner int) Unit {
	return Unit{
		Owner: owner, Type: Battlecruiser, Data: battlecruiserData,
		Health: 550, HealthMax: 550,
		Armor: 3, IsFlying: true, Radius: 1.25, Speed: 1.875,
		GroundDPS: 35.714287, GroundRange: 6,
		AirDPS: 22.321428, AirRange: 6,
	}
}

func medivac(owner int) Unit {
	return Unit{
		Owner: owner, Type: Medivac, Data: medivacData,
		Health: 150, HealthMax: 150,
		Energy: 50, EnergyMax: 200,
		Armor: 1, IsFlying: true, Radius: 0.75, Speed: 3.5,
	}
}

func repeat(n int, f func(int) Unit, owner int) []Unit {
	units := make([]Unit, n)
	for i := range units {
		units[i] = f(owner)
	}
	return units
}

// resolved returns a unit with derived DPS and range filled in.
func resolved(u Unit) Unit {
	u.FillDerived()
	return u
}
