package models

// Patch 顶层字段的部分更新
// 非 nil 的字段整体替换对应的顶层键；集合不做深度合并
// 会话字段（currentUser / isAuthenticated）不走 Patch，见 store.SetSession
type Patch struct {
	Profile         *ElderProfile
	Caregivers      *[]Caregiver
	ReliefCaregiver *Caregiver
	Medications     *[]Medication
	Appointments    *[]Appointment
	Exams           *[]Exam
	Vitals          *[]VitalLog
	Routine         *[]RoutineTask
	Meals           *[]MealLog
	Expenses        *[]Expense
	Chat            *[]ChatMessage
	Tasks           *[]GeneralTask
	Repairs         *[]Repair
	ShoppingList    *[]ShoppingItem
	Reimbursements  *[]Reimbursement
}

// Apply 将补丁套用到状态上（整键替换，替换值拷贝后存入）
func (p Patch) Apply(s *AppState) {
	if p.Profile != nil {
		profile := *p.Profile
		profile.HouseRules = cloneSlice(p.Profile.HouseRules)
		profile.Guardians = cloneSlice(p.Profile.Guardians)
		profile.EmergencyContacts = cloneSlice(p.Profile.EmergencyContacts)
		s.Profile = profile
	}
	if p.Caregivers != nil {
		s.Caregivers = cloneSlice(*p.Caregivers)
	}
	if p.ReliefCaregiver != nil {
		relief := *p.ReliefCaregiver
		s.ReliefCaregiver = &relief
	}
	if p.Medications != nil {
		s.Medications = cloneMedications(*p.Medications)
	}
	if p.Appointments != nil {
		s.Appointments = cloneSlice(*p.Appointments)
	}
	if p.Exams != nil {
		s.Exams = cloneExams(*p.Exams)
	}
	if p.Vitals != nil {
		s.Vitals = cloneSlice(*p.Vitals)
	}
	if p.Routine != nil {
		s.Routine = cloneSlice(*p.Routine)
	}
	if p.Meals != nil {
		s.Meals = cloneSlice(*p.Meals)
	}
	if p.Expenses != nil {
		s.Expenses = cloneSlice(*p.Expenses)
	}
	if p.Chat != nil {
		s.Chat = cloneSlice(*p.Chat)
	}
	if p.Tasks != nil {
		s.Tasks = cloneSlice(*p.Tasks)
	}
	if p.Repairs != nil {
		s.Repairs = cloneSlice(*p.Repairs)
	}
	if p.ShoppingList != nil {
		s.ShoppingList = cloneSlice(*p.ShoppingList)
	}
	if p.Reimbursements != nil {
		s.Reimbursements = cloneSlice(*p.Reimbursements)
	}
}
