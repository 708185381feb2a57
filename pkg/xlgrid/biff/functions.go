package biff

import "strings"

// funcInfo describes a built-in worksheet function in the BIFF function
// table. Functions with Min == Max are written as tFunc, others as tFuncVar.
type funcInfo struct {
	Name  string
	Index uint16
	Min   int
	Max   int
	// RefArgs marks functions whose range arguments are passed by reference.
	RefArgs bool
}

const maxArgs = 30

var functionTable = []funcInfo{
	{"COUNT", 0, 0, maxArgs, true},
	{"IF", 1, 2, 3, false},
	{"ISNA", 2, 1, 1, false},
	{"ISERROR", 3, 1, 1, false},
	{"SUM", 4, 0, maxArgs, true},
	{"AVERAGE", 5, 1, maxArgs, true},
	{"MIN", 6, 1, maxArgs, true},
	{"MAX", 7, 1, maxArgs, true},
	{"ROW", 8, 0, 1, true},
	{"COLUMN", 9, 0, 1, true},
	{"NA", 10, 0, 0, false},
	{"NPV", 11, 2, maxArgs, true},
	{"STDEV", 12, 1, maxArgs, true},
	{"DOLLAR", 13, 1, 2, false},
	{"FIXED", 14, 1, 3, false},
	{"SIN", 15, 1, 1, false},
	{"COS", 16, 1, 1, false},
	{"TAN", 17, 1, 1, false},
	{"ATAN", 18, 1, 1, false},
	{"PI", 19, 0, 0, false},
	{"SQRT", 20, 1, 1, false},
	{"EXP", 21, 1, 1, false},
	{"LN", 22, 1, 1, false},
	{"LOG10", 23, 1, 1, false},
	{"ABS", 24, 1, 1, false},
	{"INT", 25, 1, 1, false},
	{"SIGN", 26, 1, 1, false},
	{"ROUND", 27, 2, 2, false},
	{"LOOKUP", 28, 2, 3, true},
	{"INDEX", 29, 2, 4, true},
	{"REPT", 30, 2, 2, false},
	{"MID", 31, 3, 3, false},
	{"LEN", 32, 1, 1, false},
	{"VALUE", 33, 1, 1, false},
	{"TRUE", 34, 0, 0, false},
	{"FALSE", 35, 0, 0, false},
	{"AND", 36, 1, maxArgs, true},
	{"OR", 37, 1, maxArgs, true},
	{"NOT", 38, 1, 1, false},
	{"MOD", 39, 2, 2, false},
	{"VAR", 46, 1, maxArgs, true},
	{"TEXT", 48, 2, 2, false},
	{"PV", 56, 3, 5, false},
	{"FV", 57, 3, 5, false},
	{"NPER", 58, 3, 5, false},
	{"PMT", 59, 3, 5, false},
	{"RATE", 60, 3, 6, false},
	{"RAND", 63, 0, 0, false},
	{"MATCH", 64, 2, 3, true},
	{"DATE", 65, 3, 3, false},
	{"TIME", 66, 3, 3, false},
	{"DAY", 67, 1, 1, false},
	{"MONTH", 68, 1, 1, false},
	{"YEAR", 69, 1, 1, false},
	{"WEEKDAY", 70, 1, 2, false},
	{"HOUR", 71, 1, 1, false},
	{"MINUTE", 72, 1, 1, false},
	{"SECOND", 73, 1, 1, false},
	{"NOW", 74, 0, 0, false},
	{"AREAS", 75, 1, 1, true},
	{"ROWS", 76, 1, 1, true},
	{"COLUMNS", 77, 1, 1, true},
	{"OFFSET", 78, 3, 5, true},
	{"SEARCH", 82, 2, 3, false},
	{"TRANSPOSE", 83, 1, 1, true},
	{"ATAN2", 97, 2, 2, false},
	{"ASIN", 98, 1, 1, false},
	{"ACOS", 99, 1, 1, false},
	{"CHOOSE", 100, 2, maxArgs, true},
	{"HLOOKUP", 101, 3, 4, true},
	{"VLOOKUP", 102, 3, 4, true},
	{"ISREF", 105, 1, 1, true},
	{"LOG", 109, 1, 2, false},
	{"CHAR", 111, 1, 1, false},
	{"LOWER", 112, 1, 1, false},
	{"UPPER", 113, 1, 1, false},
	{"PROPER", 114, 1, 1, false},
	{"LEFT", 115, 1, 2, false},
	{"RIGHT", 116, 1, 2, false},
	{"EXACT", 117, 2, 2, false},
	{"TRIM", 118, 1, 1, false},
	{"REPLACE", 119, 4, 4, false},
	{"SUBSTITUTE", 120, 3, 4, false},
	{"CODE", 121, 1, 1, false},
	{"FIND", 124, 2, 3, false},
	{"CELL", 125, 1, 2, true},
	{"ISERR", 126, 1, 1, false},
	{"ISTEXT", 127, 1, 1, false},
	{"ISNUMBER", 128, 1, 1, false},
	{"ISBLANK", 129, 1, 1, false},
	{"T", 130, 1, 1, false},
	{"N", 131, 1, 1, false},
	{"DATEVALUE", 140, 1, 1, false},
	{"TIMEVALUE", 141, 1, 1, false},
	{"INDIRECT", 148, 1, 2, false},
	{"CLEAN", 162, 1, 1, false},
	{"MDETERM", 163, 1, 1, true},
	{"COUNTA", 169, 0, maxArgs, true},
	{"PRODUCT", 183, 0, maxArgs, true},
	{"FACT", 184, 1, 1, false},
	{"ISNONTEXT", 190, 1, 1, false},
	{"STDEVP", 193, 1, maxArgs, true},
	{"VARP", 194, 1, maxArgs, true},
	{"TRUNC", 197, 1, 2, false},
	{"ISLOGICAL", 198, 1, 1, false},
	{"ROUNDUP", 212, 2, 2, false},
	{"ROUNDDOWN", 213, 2, 2, false},
	{"RANK", 216, 2, 3, true},
	{"ADDRESS", 219, 2, 5, false},
	{"DAYS360", 220, 2, 3, false},
	{"TODAY", 221, 0, 0, false},
	{"MEDIAN", 227, 1, maxArgs, true},
	{"SUMPRODUCT", 228, 1, maxArgs, true},
	{"ERROR.TYPE", 261, 1, 1, false},
	{"AVEDEV", 269, 1, maxArgs, true},
	{"COMBIN", 276, 2, 2, false},
	{"EVEN", 279, 1, 1, false},
	{"FLOOR", 285, 2, 2, false},
	{"CEILING", 288, 2, 2, false},
	{"ODD", 298, 1, 1, false},
	{"LARGE", 325, 2, 2, true},
	{"SMALL", 326, 2, 2, true},
	{"CONCATENATE", 336, 0, maxArgs, false},
	{"POWER", 337, 2, 2, false},
	{"RADIANS", 342, 1, 1, false},
	{"DEGREES", 343, 1, 1, false},
	{"SUBTOTAL", 344, 2, maxArgs, true},
	{"SUMIF", 345, 2, 3, true},
	{"COUNTIF", 346, 2, 2, true},
	{"COUNTBLANK", 347, 1, 1, true},
	{"ROMAN", 354, 1, 2, false},
	{"HYPERLINK", 359, 1, 2, false},
	{"AVERAGEA", 361, 1, maxArgs, true},
	{"MAXA", 362, 1, maxArgs, true},
	{"MINA", 363, 1, maxArgs, true},
}

// userFunctionIndex is the tFuncVar index of add-in and macro functions,
// whose name is passed as the first argument.
const userFunctionIndex = 255

var (
	funcByName  = map[string]*funcInfo{}
	funcByIndex = map[uint16]*funcInfo{}
)

func init() {
	for i := range functionTable {
		f := &functionTable[i]
		funcByName[f.Name] = f
		funcByIndex[f.Index] = f
	}
}

func lookupFunction(name string) (*funcInfo, bool) {
	f, ok := funcByName[strings.ToUpper(name)]
	return f, ok
}
