// Package validation содержит функции валидации входных данных.
package validation

// IsValidAmount проверяет, что сумма начисления положительна.
func IsValidAmount(amount int64) bool {
	return amount > 0
}

// IsValidStepID проверяет, что номер шага попадает в границы активности.
func IsValidStepID(stepID, completionSteps int) bool {
	return stepID >= 1 && stepID <= completionSteps
}
