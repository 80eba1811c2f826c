package accounts

import "github.com/imacat/mia-accounting-django-sub000/internal/model"

// DefaultChart returns the chart of accounts seeded by "mia init". Codes
// follow the Taiwanese business accounting classification: 1 assets,
// 2 liabilities, 3 equity, 4 revenue, 5 cost, 6 expenses, 7 non-operating,
// 8 income tax, 9 nonrecurring.
func DefaultChart() []model.Account {
	return []model.Account{
		{Code: "1", Title: "Assets"},
		{Code: "11", Title: "Cash and cash equivalents"},
		{Code: "111", Title: "Cash and cash equivalents"},
		{Code: "1111", Title: "Cash on hand"},
		{Code: "1112", Title: "Petty cash"},
		{Code: "1113", Title: "Cash in banks"},
		{Code: "12", Title: "Short-term investments"},
		{Code: "121", Title: "Short-term investments"},
		{Code: "1211", Title: "Short-term investments - stocks"},
		{Code: "13", Title: "Receivables"},
		{Code: "131", Title: "Notes receivable"},
		{Code: "1311", Title: "Notes receivable"},
		{Code: "132", Title: "Accounts receivable"},
		{Code: "1321", Title: "Accounts receivable"},
		{Code: "14", Title: "Property, plant and equipment"},
		{Code: "141", Title: "Land"},
		{Code: "1411", Title: "Land"},
		{Code: "142", Title: "Land improvements"},
		{Code: "1421", Title: "Land improvements"},
		{Code: "143", Title: "Buildings"},
		{Code: "1431", Title: "Buildings"},
		{Code: "144", Title: "Machinery and equipment"},
		{Code: "1441", Title: "Machinery and equipment"},
		{Code: "15", Title: "Other equipment"},
		{Code: "151", Title: "Transportation equipment"},
		{Code: "1511", Title: "Transportation equipment"},
		{Code: "152", Title: "Office equipment"},
		{Code: "1521", Title: "Office equipment"},
		{Code: "153", Title: "Leased equipment"},
		{Code: "1531", Title: "Leased equipment"},
		{Code: "154", Title: "Leasehold improvements"},
		{Code: "1541", Title: "Leasehold improvements"},

		{Code: "2", Title: "Liabilities"},
		{Code: "21", Title: "Current liabilities"},
		{Code: "211", Title: "Short-term borrowings"},
		{Code: "2111", Title: "Bank overdraft"},
		{Code: "2112", Title: "Bank loans"},
		{Code: "214", Title: "Payables"},
		{Code: "2141", Title: "Notes payable"},
		{Code: "2142", Title: "Accounts payable"},
		{Code: "2143", Title: "Credit card payable"},
		{Code: "2144", Title: "Salaries payable"},
		{Code: "2145", Title: "Rent payable"},
		{Code: "2146", Title: "Interest payable"},
		{Code: "2147", Title: "Taxes payable"},
		{Code: "2148", Title: "Utilities payable"},
		{Code: "2149", Title: "Other payables"},
		{Code: "22", Title: "Other current liabilities"},
		{Code: "221", Title: "Advances received"},
		{Code: "2211", Title: "Advances received"},
		{Code: "23", Title: "Long-term liabilities"},
		{Code: "231", Title: "Long-term loans"},
		{Code: "2311", Title: "Long-term loans"},

		{Code: "3", Title: "Owner's equity"},
		{Code: "31", Title: "Capital"},
		{Code: "311", Title: "Capital"},
		{Code: "3111", Title: "Capital"},
		{Code: "33", Title: "Retained earnings"},
		{Code: "335", Title: "Accumulated profit or loss"},
		{Code: "3351", Title: "Accumulated balance"},
		{Code: "3353", Title: "Net income or loss for current period"},

		{Code: "4", Title: "Operating revenue"},
		{Code: "41", Title: "Sales revenue"},
		{Code: "411", Title: "Sales revenue"},
		{Code: "4111", Title: "Sales revenue"},
		{Code: "46", Title: "Service revenue"},
		{Code: "461", Title: "Service revenue"},
		{Code: "4611", Title: "Service revenue"},

		{Code: "5", Title: "Operating costs"},
		{Code: "51", Title: "Cost of goods sold"},
		{Code: "511", Title: "Cost of goods sold"},
		{Code: "5111", Title: "Cost of goods sold"},

		{Code: "6", Title: "Operating expenses"},
		{Code: "62", Title: "Administrative expenses"},
		{Code: "621", Title: "Salaries"},
		{Code: "6211", Title: "Salaries"},
		{Code: "622", Title: "Rent"},
		{Code: "6221", Title: "Rent"},
		{Code: "625", Title: "Utilities"},
		{Code: "6251", Title: "Water and electricity"},
		{Code: "6252", Title: "Telephone and internet"},
		{Code: "627", Title: "Staff welfare"},
		{Code: "6271", Title: "Staff welfare"},
		{Code: "6272", Title: "Meals"},
		{Code: "628", Title: "Supplies"},
		{Code: "6281", Title: "Office supplies"},

		{Code: "7", Title: "Non-operating income and expenses"},
		{Code: "71", Title: "Non-operating revenue"},
		{Code: "711", Title: "Interest revenue"},
		{Code: "7111", Title: "Interest revenue"},
		{Code: "748", Title: "Miscellaneous revenue"},
		{Code: "7481", Title: "Miscellaneous revenue"},
		{Code: "75", Title: "Non-operating expenses"},
		{Code: "751", Title: "Interest expense"},
		{Code: "7511", Title: "Interest expense"},
		{Code: "788", Title: "Miscellaneous losses"},
		{Code: "7881", Title: "Miscellaneous losses"},

		{Code: "8", Title: "Income tax"},
		{Code: "81", Title: "Income tax expense"},
		{Code: "811", Title: "Income tax expense"},
		{Code: "8111", Title: "Income tax expense"},

		{Code: "9", Title: "Nonrecurring gains and losses"},
		{Code: "91", Title: "Discontinued operations"},
		{Code: "911", Title: "Discontinued operations"},
		{Code: "9111", Title: "Gain or loss on discontinued operations"},
	}
}
