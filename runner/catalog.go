package runner

// DefaultCatalog lists the tests of the functional test application, as
// reported by log only runs.
var DefaultCatalog = []string{
	`com.github.tarcv.test.DangerousNamesTest#test[param = $THIS_IS_NOT_A_VAR]`,
	`com.github.tarcv.test.DangerousNamesTest#test[param =        1       ]`,
	`com.github.tarcv.test.DangerousNamesTest#test[param = #######]`,
	`com.github.tarcv.test.DangerousNamesTest#test[param = !!!!!!!]`,
	`com.github.tarcv.test.DangerousNamesTest#test[param = ''''''']`,
	`com.github.tarcv.test.DangerousNamesTest#test[param = """"""""]`,
	"com.github.tarcv.test.DangerousNamesTest#test[param = ()$(echo)`echo`()$(echo)`echo`()$(echo)`echo`()$(echo)`echo`()$(echo)`echo`()$(echo)`echo`()$(echo)`echo`]",
	`com.github.tarcv.test.DangerousNamesTest#test[param = * *.* * *.* * *.* * *.* * *.* * *.* * *.* * *.* *]`,
	`com.github.tarcv.test.DangerousNamesTest#test[param = . .. . .. . .. . .. . .. . .. . .. . .. . .. . ..]`,
	"com.github.tarcv.test.DangerousNamesTest#test[param = |&;<>()$`?[]#~=%|&;<>()$`?[]#~=%|&;<>()$`?[]#~=%|&;<>()$`?[]#~=%|&;<>()$`?[]#~=%|&;<>()$`?[]#~=%|&;<>()$`?[]#~=%]",
	`com.github.tarcv.test.DangerousNamesTest#test[param = Non-ASCII: ° © ± ¶ ½ » ѱ ∆]`,
	`com.github.tarcv.test.DangerousNamesTest#test[param = ; function {}; while {}; for {}; do {}; done {}; exit]`,
	`com.github.tarcv.test.FilteredTest#api22Only[1]`,
	`com.github.tarcv.test.FilteredTest#api22Only[2]`,
	`com.github.tarcv.test.FilteredTest#api22Only[3]`,
	`com.github.tarcv.test.FilteredTest#api22Only[4]`,
	`com.github.tarcv.test.FilteredTest#filteredByF2Filter[1]`,
	`com.github.tarcv.test.FilteredTest#filteredByF2Filter[2]`,
	`com.github.tarcv.test.FilteredTest#filteredByF2Filter[3]`,
	`com.github.tarcv.test.FilteredTest#filteredByF2Filter[4]`,
	`com.github.tarcv.test.GrantPermissionsForClassTest#testPermissionGranted1`,
	`com.github.tarcv.test.GrantPermissionsForClassTest#testPermissionGranted2`,
	`com.github.tarcv.test.GrantPermissionsForInheritedClassTest#testPermissionGranted1`,
	`com.github.tarcv.test.GrantPermissionsForInheritedClassTest#testPermissionGranted2`,
	`com.github.tarcv.test.GrantPermissionsTest#testPermissionGranted`,
	`com.github.tarcv.test.GrantPermissionsTest#testNoPermissionByDefault`,
	`com.github.tarcv.test.NoPermissionsForOverridesTest#testNoPermissionForAbstractOverrides`,
	`com.github.tarcv.test.NoPermissionsForOverridesTest#testNoPermissionForNormalOverrides`,
	`com.github.tarcv.test.NormalTest#test`,
	`com.github.tarcv.test.ParameterizedNamedTest#test[param = 1]`,
	`com.github.tarcv.test.ParameterizedNamedTest#test[param = 2]`,
	`com.github.tarcv.test.ParameterizedNamedTest#test[param = 3]`,
	`com.github.tarcv.test.ParameterizedNamedTest#test[param = 4]`,
	`com.github.tarcv.test.ParameterizedNamedTest#test[param = 5]`,
	`com.github.tarcv.test.ParameterizedNamedTest#test[param = 6]`,
	`com.github.tarcv.test.ParameterizedNamedTest#test[param = 7]`,
	`com.github.tarcv.test.ParameterizedNamedTest#test[param = 8]`,
	`com.github.tarcv.test.ParameterizedTest#test[1]`,
	`com.github.tarcv.test.ParameterizedTest#test[2]`,
	`com.github.tarcv.test.ParameterizedTest#test[3]`,
	`com.github.tarcv.test.ParameterizedTest#test[4]`,
	`com.github.tarcv.test.ParameterizedTest#test[5]`,
	`com.github.tarcv.test.ParameterizedTest#test[6]`,
	`com.github.tarcv.test.ParameterizedTest#test[7]`,
	`com.github.tarcv.test.ParameterizedTest#test[8]`,
	`com.github.tarcv.test.PropertiesTest#normalPropertiesTest`,
	`com.github.tarcv.test.PropertiesTest#normalPropertyPairsTest`,
	`com.github.tarcv.test.ResetPrefsTest#testPrefsAreClearedBetweenTests[0]`,
	`com.github.tarcv.test.ResetPrefsTest#testPrefsAreClearedBetweenTests[1]`,
	`com.github.tarcv.test.ResetPrefsTest#testPrefsAreClearedBetweenTests[2]`,
	`com.github.tarcv.test.ResetPrefsTest#testPrefsAreClearedBetweenTests[3]`,
}
