package julia

// AddScript installs specs into the active environment.
func AddScript(specs []PackageSpec) string {
	return "using Pkg; Pkg.add([" + List(specs) + "])"
}

// RemoveScript removes specs from the active environment.
func RemoveScript(specs []PackageSpec) string {
	return "using Pkg; Pkg.rm([" + List(specs) + "])"
}

// UpdateScript updates specs, or every dependency when specs is empty.
func UpdateScript(specs []PackageSpec) string {
	if len(specs) == 0 {
		return "using Pkg; Pkg.update()"
	}
	return "using Pkg; Pkg.update([" + List(specs) + "])"
}

// StatusScript prints the environment status.
func StatusScript() string {
	return "using Pkg; Pkg.status()"
}

// VersionScript prints VERSION as major.minor.patch.
const VersionScript = "print(VERSION)"
