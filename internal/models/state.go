package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// BloodType 血型（与存档文档中的字符串一致）
type BloodType = string

const (
	BloodTypeAPos  BloodType = "A+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeABPos BloodType = "AB+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeONeg  BloodType = "O-"
)

// Guardian 监护人/紧急联系人
type Guardian struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Photo string `json:"photo,omitempty"`
}

// Rule 家庭照护规则
// Category: "attention" | "routines" | "hygiene"
type Rule struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Author   string `json:"author"`
	Date     string `json:"date"`
}

// ElderProfile 老人档案（身份信息 + 医疗备注 + 家规 + 联系人）
type ElderProfile struct {
	Name              string     `json:"name"`
	CPF               string     `json:"cpf,omitempty"`
	Age               int        `json:"age"`
	Weight            float64    `json:"weight"`
	Height            float64    `json:"height"`
	BloodType         BloodType  `json:"bloodType"`
	Allergies         string     `json:"allergies,omitempty"`
	ChronicConditions string     `json:"chronicConditions,omitempty"`
	Notes             string     `json:"notes"`
	HouseRules        []Rule     `json:"houseRules"`
	Photo             string     `json:"photo,omitempty"`
	Guardians         []Guardian `json:"guardians,omitempty"`
	EmergencyContacts []Guardian `json:"emergencyContacts,omitempty"`
}

// Caregiver 照护人员（固定班次成员或替班）
type Caregiver struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
	Photo string `json:"photo,omitempty"`
}

// Medication 用药计划
// Time 为 "HH:MM"；LastNotified 为 RFC3339 时间戳，提醒去重用
type Medication struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Dosage       string   `json:"dosage"`
	Time         string   `json:"time"`
	TakenToday   bool     `json:"takenToday"`
	LastNotified string   `json:"lastNotified,omitempty"`
	Days         []string `json:"days,omitempty"`
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
}

// Appointment 就诊预约
// Notified 只允许 false→true（远程合并除外）
type Appointment struct {
	ID         string `json:"id"`
	Specialty  string `json:"specialty"`
	DoctorName string `json:"doctorName,omitempty"`
	Address    string `json:"address"`
	Phone      string `json:"phone,omitempty"`
	Datetime   string `json:"datetime"`
	Notify     bool   `json:"notify"`
	Notified   bool   `json:"notified"`
}

// Exam 检查/化验
type Exam struct {
	ID           string   `json:"id"`
	DoctorName   string   `json:"doctorName"`
	ExamTypes    []string `json:"examTypes"`
	LocationName string   `json:"locationName"`
	Address      string   `json:"address"`
	Datetime     string   `json:"datetime"`
}

// VitalLog 生命体征记录
type VitalLog struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	Oxygen    int    `json:"oxygen"`
}

// RoutineTask 日常活动
// Type: "Physical" | "Cognitive" | "Memory" | "Physio" | "Other"
type RoutineTask struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Date        string `json:"date"`
}

// MealLog 餐食记录
// Type: "Breakfast" | "Lunch" | "Snack" | "Dinner"
type MealLog struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// Expense 支出记录（小票图片可选）
type Expense struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Description  string  `json:"description"`
	Amount       float64 `json:"amount"`
	ReceiptImage string  `json:"receiptImage,omitempty"`
}

// ChatMessage 团队聊天消息
type ChatMessage struct {
	ID            string `json:"id"`
	SenderID      string `json:"senderId"`
	SenderName    string `json:"senderName"`
	Text          string `json:"text"`
	Timestamp     string `json:"timestamp"`
	RecipientID   string `json:"recipientId,omitempty"`
	RecipientName string `json:"recipientName,omitempty"`
}

// GeneralTask 通用提醒事项
type GeneralTask struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
}

// Repair 维修事项
// Status: "pending" | "fixed"
type Repair struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Date        string `json:"date"`
	Status      string `json:"status"`
}

// ShoppingItem 采购清单项
// Category: "Meds" | "Market"
type ShoppingItem struct {
	ID        string `json:"id"`
	Item      string `json:"item"`
	Category  string `json:"category"`
	Author    string `json:"author"`
	Date      string `json:"date"`
	Purchased bool   `json:"purchased"`
}

// Reimbursement 报销申请
// Status: "pending" | "paid"
type Reimbursement struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	RequesterName string  `json:"requesterName"`
	Amount        float64 `json:"amount"`
	ReceiptPhoto  string  `json:"receiptPhoto,omitempty"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
}

// AppState 应用全量状态文档（本地与远程持久化的根聚合）
// JSON 字段名与既有存档文档保持一致，不能随意改动
type AppState struct {
	Profile         ElderProfile    `json:"profile"`
	Caregivers      []Caregiver     `json:"caregivers"`
	ReliefCaregiver *Caregiver      `json:"reliefCaregiver,omitempty"`
	Medications     []Medication    `json:"medications"`
	Appointments    []Appointment   `json:"appointments"`
	Exams           []Exam          `json:"exams"`
	Vitals          []VitalLog      `json:"vitals"`
	Routine         []RoutineTask   `json:"routine"`
	Meals           []MealLog       `json:"meals"`
	Expenses        []Expense       `json:"expenses"`
	Chat            []ChatMessage   `json:"chat"`
	Tasks           []GeneralTask   `json:"tasks"`
	Repairs         []Repair        `json:"repairs"`
	ShoppingList    []ShoppingItem  `json:"shoppingList"`
	Reimbursements  []Reimbursement `json:"reimbursements"`
	CurrentUser     *Caregiver      `json:"currentUser"`
	IsAuthenticated bool            `json:"isAuthenticated"`
}

// DefaultState 返回默认状态骨架
// 旧版本存档缺失的字段在解码时由该骨架补齐
func DefaultState() *AppState {
	return &AppState{
		Profile: ElderProfile{
			Name:              "João Silva",
			Age:               82,
			Weight:            75,
			Height:            172,
			BloodType:         BloodTypeAPos,
			Allergies:         "Nenhuma conhecida",
			ChronicConditions: "Nenhuma conhecida",
			Notes:             "O paciente prefere ler pela manhã.",
			HouseRules:        []Rule{},
			Guardians:         []Guardian{},
			EmergencyContacts: []Guardian{},
		},
		Caregivers: []Caregiver{
			{ID: "1", Name: "Maria (Manhã)", Phone: "5511999999999"},
			{ID: "2", Name: "Ana (Noite)", Phone: "5511888888888"},
		},
		Medications:    []Medication{},
		Appointments:   []Appointment{},
		Exams:          []Exam{},
		Vitals:         []VitalLog{},
		Routine:        []RoutineTask{},
		Meals:          []MealLog{},
		Expenses:       []Expense{},
		Chat:           []ChatMessage{},
		Tasks:          []GeneralTask{},
		Repairs:        []Repair{},
		ShoppingList:   []ShoppingItem{},
		Reimbursements: []Reimbursement{},
	}
}

// DecodeState 在默认骨架之上解码状态文档
// 旧文档缺失的顶层字段保留默认值，保证向后兼容
func DecodeState(raw []byte) (*AppState, error) {
	state := DefaultState()
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Fingerprint 返回文档的序列化指纹（回声抑制用）
// 推送和拉取两侧都经过同一结构体序列化，存储端的格式差异不会影响比较
func (s *AppState) Fingerprint() string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}

// Clone 深拷贝状态文档（快照不与内部状态共享切片）
// 缺失的集合统一拷贝成空切片：序列化为 [] 而不是 null。
// null 在解码端会被默认骨架回填，推送与拉取两侧的指纹就对不上了
func (s *AppState) Clone() *AppState {
	if s == nil {
		return nil
	}
	c := *s
	c.Profile.HouseRules = cloneSlice(s.Profile.HouseRules)
	c.Profile.Guardians = cloneSlice(s.Profile.Guardians)
	c.Profile.EmergencyContacts = cloneSlice(s.Profile.EmergencyContacts)
	c.Caregivers = cloneSlice(s.Caregivers)
	if s.ReliefCaregiver != nil {
		relief := *s.ReliefCaregiver
		c.ReliefCaregiver = &relief
	}
	c.Medications = cloneMedications(s.Medications)
	c.Appointments = cloneSlice(s.Appointments)
	c.Exams = cloneExams(s.Exams)
	c.Vitals = cloneSlice(s.Vitals)
	c.Routine = cloneSlice(s.Routine)
	c.Meals = cloneSlice(s.Meals)
	c.Expenses = cloneSlice(s.Expenses)
	c.Chat = cloneSlice(s.Chat)
	c.Tasks = cloneSlice(s.Tasks)
	c.Repairs = cloneSlice(s.Repairs)
	c.ShoppingList = cloneSlice(s.ShoppingList)
	c.Reimbursements = cloneSlice(s.Reimbursements)
	if s.CurrentUser != nil {
		user := *s.CurrentUser
		c.CurrentUser = &user
	}
	return &c
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// cloneMedications 逐条拷贝（Days 是嵌套切片）
func cloneMedications(in []Medication) []Medication {
	out := make([]Medication, len(in))
	for i, m := range in {
		m.Days = cloneSlice(m.Days)
		out[i] = m
	}
	return out
}

func cloneExams(in []Exam) []Exam {
	out := make([]Exam, len(in))
	for i, e := range in {
		e.ExamTypes = cloneSlice(e.ExamTypes)
		out[i] = e
	}
	return out
}

// NewEntityID 生成实体ID（创建时刻的毫秒时间戳，分配后不再变更）
func NewEntityID(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
