package model

import (
    "math"
    "strings"
)

// ProfileCompletion returns the percentage of required profile fields
// the user has filled, rounded to the nearest integer.  Admin accounts
// have no required profile and always report 100.
func ProfileCompletion(u *User) int {
    var fields []bool
    switch u.Role {
    case RoleStudent:
        fields = []bool{
            filled(u.Name),
            filled(u.Phone),
            filled(u.Branch),
            u.Year > 0,
            filled(u.RollNumber),
            u.CGPA != nil,
            len(u.Skills) > 0,
            filled(u.ResumePath),
        }
    case RoleCompany:
        fields = []bool{
            filled(u.CompanyName),
            filled(u.Industry),
            filled(u.Website),
            filled(u.Description),
            filled(u.Phone),
            filled(u.LogoPath),
        }
    default:
        return 100
    }
    n := 0
    for _, ok := range fields {
        if ok {
            n++
        }
    }
    return int(math.Round(float64(n) * 100 / float64(len(fields))))
}

func filled(s string) bool { return strings.TrimSpace(s) != "" }
