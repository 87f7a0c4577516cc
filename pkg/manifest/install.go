package manifest

// Materialized holds the provider-specific entries produced from the
// generic install section for one target operating system.
type Materialized struct {
	Provider Provider
	Apt      Entries[AptPackage]
	Brew     Entries[BrewPackage]
	System   Entries[SystemPackage]
}

// Materialize converts the generic install section into entries for
// provider. Packages listed without a block install the package of the
// same name.
func (i *InstallConfiguration) Materialize(provider Provider) Materialized {
	out := Materialized{Provider: provider}
	if i == nil {
		return out
	}
	pkgs := i.Pkg
	for _, name := range i.Packages {
		if !pkgs.Has(name) {
			pkgs = append(pkgs, GenericPackage{Name: name})
		}
	}
	for _, pkg := range pkgs {
		switch provider {
		case ProviderApt:
			out.Apt = append(out.Apt, pkg.aptPackage())
		case ProviderBrew:
			out.Brew = append(out.Brew, pkg.brewPackage())
		default:
			out.System = append(out.System, pkg.systemPackage())
		}
	}
	return out
}

func (g GenericPackage) aptPackage() AptPackage {
	return AptPackage{
		Name:            g.Name,
		URL:             g.URL,
		GPGKey:          g.GPGKey,
		GPGPath:         g.GPGPath,
		SetupRepository: g.SetupRepository,
		AptUpdate:       g.AptUpdate,
		Packages:        g.Packages,
		DependsOn:       g.DependsOn,
		Preinstall:      g.Preinstall,
		Postinstall:     g.Postinstall,
		VersionCheck:    g.VersionCheck,
	}
}

func (g GenericPackage) brewPackage() BrewPackage {
	return BrewPackage{
		Name:         g.Name,
		Cask:         g.Cask,
		Preinstall:   g.Preinstall,
		Postinstall:  g.Postinstall,
		VersionCheck: g.VersionCheck,
	}
}

func (g GenericPackage) systemPackage() SystemPackage {
	return SystemPackage{
		Name:           g.Name,
		Packages:       g.Packages,
		DependsOn:      g.DependsOn,
		Preinstall:     g.Preinstall,
		Postinstall:    g.Postinstall,
		VersionCheck:   g.VersionCheck,
		NonInteractive: g.NonInteractive,
		Interactive:    g.Interactive,
		Ask:            g.Ask,
		Verbose:        g.Verbose,
	}
}
